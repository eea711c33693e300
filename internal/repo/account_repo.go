package repo

import (
	"context"
	"fmt"
	"strings"

	dom "github.com/mattyz777/matt-conduit/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRows is returned when no live account matches.
var ErrNoRows = pgx.ErrNoRows

// AccountRepo provides account persistence. Reads never return soft-deleted rows.
type AccountRepo interface {
	Insert(ctx context.Context, a dom.NewAccount) (dom.Account, error)
	FindByID(ctx context.Context, id int64) (dom.Account, error)
	FindByUsername(ctx context.Context, username string) (dom.Account, error)
	ExistsByUsername(ctx context.Context, username string, excludingID *int64) (bool, error)
	Update(ctx context.Context, id int64, patch dom.AccountPatch) (dom.Account, error)
	SoftDelete(ctx context.Context, id int64) error
}

// PGAccountRepo implements AccountRepo with Postgres.
type PGAccountRepo struct {
	db *pgxpool.Pool
}

// NewPGAccountRepo returns a new PGAccountRepo.
func NewPGAccountRepo(db *pgxpool.Pool) *PGAccountRepo {
	return &PGAccountRepo{db: db}
}

const accountColumns = `id, username, password_hash, age, gender, email, created_at, updated_at, is_deleted`

// stampUpdatedAt keeps updated_at strictly increasing even if the clock does not move.
const stampUpdatedAt = `updated_at = GREATEST(clock_timestamp(), updated_at + INTERVAL '1 microsecond')`

func scanAccount(row pgx.Row) (dom.Account, error) {
	var a dom.Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Age, &a.Gender, &a.Email,
		&a.CreatedAt, &a.UpdatedAt, &a.IsDeleted)
	return a, err
}

// Insert creates a new account row and returns it.
func (r *PGAccountRepo) Insert(ctx context.Context, a dom.NewAccount) (dom.Account, error) {
	query := `
		INSERT INTO accounts (username, password_hash, age, gender, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, a.Username, a.PasswordHash, a.Age, a.Gender, a.Email))
}

// FindByID returns the live account with the given id.
func (r *PGAccountRepo) FindByID(ctx context.Context, id int64) (dom.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND is_deleted = FALSE`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// FindByUsername returns the live account with the given username.
func (r *PGAccountRepo) FindByUsername(ctx context.Context, username string) (dom.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 AND is_deleted = FALSE`
	return scanAccount(r.db.QueryRow(ctx, query, username))
}

// ExistsByUsername reports whether a live account other than excludingID uses username.
func (r *PGAccountRepo) ExistsByUsername(ctx context.Context, username string, excludingID *int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE username = $1 AND is_deleted = FALSE AND ($2::BIGINT IS NULL OR id <> $2)
		)`
	var exists bool
	err := r.db.QueryRow(ctx, query, username, excludingID).Scan(&exists)
	return exists, err
}

// Update applies patch to the live account in a single statement.
func (r *PGAccountRepo) Update(ctx context.Context, id int64, patch dom.AccountPatch) (dom.Account, error) {
	query, args := buildUpdate(id, patch)
	return scanAccount(r.db.QueryRow(ctx, query, args...))
}

// SoftDelete marks the live account deleted. ErrNoRows if there is none.
func (r *PGAccountRepo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET is_deleted = TRUE, `+stampUpdatedAt+` WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// buildUpdate renders the UPDATE for the columns present in patch; updated_at is always stamped.
func buildUpdate(id int64, patch dom.AccountPatch) (string, []any) {
	args := []any{id}
	sets := make([]string, 0, 6)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.Age.Set {
		add("age", patch.Age.Ptr())
	}
	if patch.Gender != nil {
		add("gender", *patch.Gender)
	}
	if patch.Email.Set {
		add("email", patch.Email.Ptr())
	}
	sets = append(sets, stampUpdatedAt)

	query := `UPDATE accounts SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND is_deleted = FALSE RETURNING ` + accountColumns
	return query, args
}
