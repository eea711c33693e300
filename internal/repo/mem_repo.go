package repo

import (
	"context"
	"sync"
	"time"

	dom "github.com/mattyz777/matt-conduit/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// MemAccountRepo is an in-memory AccountRepo for tests and local runs.
// It mirrors the Postgres behaviour that matters to callers: live-row filtering,
// the partial unique index on username, and a strictly advancing updated_at.
type MemAccountRepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]dom.Account
}

func NewMemAccountRepo() *MemAccountRepo {
	return &MemAccountRepo{rows: make(map[int64]dom.Account)}
}

func (r *MemAccountRepo) Insert(ctx context.Context, a dom.NewAccount) (dom.Account, error) {
	if err := ctx.Err(); err != nil {
		return dom.Account{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.liveUsernameTaken(a.Username, 0) {
		return dom.Account{}, uniqueViolation()
	}
	r.nextID++
	now := time.Now().UTC()
	row := dom.Account{
		ID:           r.nextID,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Age:          clonePtr(a.Age),
		Gender:       a.Gender,
		Email:        clonePtr(a.Email),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.rows[row.ID] = row
	return cloneAccount(row), nil
}

func (r *MemAccountRepo) FindByID(ctx context.Context, id int64) (dom.Account, error) {
	if err := ctx.Err(); err != nil {
		return dom.Account{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok || row.IsDeleted {
		return dom.Account{}, ErrNoRows
	}
	return cloneAccount(row), nil
}

func (r *MemAccountRepo) FindByUsername(ctx context.Context, username string) (dom.Account, error) {
	if err := ctx.Err(); err != nil {
		return dom.Account{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if !row.IsDeleted && row.Username == username {
			return cloneAccount(row), nil
		}
	}
	return dom.Account{}, ErrNoRows
}

func (r *MemAccountRepo) ExistsByUsername(ctx context.Context, username string, excludingID *int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var skip int64
	if excludingID != nil {
		skip = *excludingID
	}
	return r.liveUsernameTaken(username, skip), nil
}

func (r *MemAccountRepo) Update(ctx context.Context, id int64, patch dom.AccountPatch) (dom.Account, error) {
	if err := ctx.Err(); err != nil {
		return dom.Account{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.IsDeleted {
		return dom.Account{}, ErrNoRows
	}
	if patch.Username != nil {
		if r.liveUsernameTaken(*patch.Username, id) {
			return dom.Account{}, uniqueViolation()
		}
		row.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		row.PasswordHash = *patch.PasswordHash
	}
	row.Age = patch.Age.Apply(row.Age)
	if patch.Gender != nil {
		row.Gender = *patch.Gender
	}
	row.Email = patch.Email.Apply(row.Email)
	row.UpdatedAt = advance(row.UpdatedAt)
	r.rows[id] = row
	return cloneAccount(row), nil
}

func (r *MemAccountRepo) SoftDelete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.IsDeleted {
		return ErrNoRows
	}
	row.IsDeleted = true
	row.UpdatedAt = advance(row.UpdatedAt)
	r.rows[id] = row
	return nil
}

// Raw returns the stored row including deleted ones.
func (r *MemAccountRepo) Raw(id int64) (dom.Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	return cloneAccount(row), ok
}

func (r *MemAccountRepo) liveUsernameTaken(username string, skip int64) bool {
	for id, row := range r.rows {
		if id != skip && !row.IsDeleted && row.Username == username {
			return true
		}
	}
	return false
}

func advance(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_active_key"}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAccount(a dom.Account) dom.Account {
	a.Age = clonePtr(a.Age)
	a.Email = clonePtr(a.Email)
	return a
}
