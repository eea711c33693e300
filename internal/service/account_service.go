package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattyz777/matt-conduit/internal/apperr"
	dom "github.com/mattyz777/matt-conduit/internal/domain"
	"github.com/mattyz777/matt-conduit/internal/logger"
	"github.com/mattyz777/matt-conduit/internal/metrics"
	"github.com/mattyz777/matt-conduit/internal/repo"
	"github.com/mattyz777/matt-conduit/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PasswordHasher is the one-way credential hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// AccountCache is an optional read-through cache of account views.
type AccountCache interface {
	Get(ctx context.Context, id int64) (*dom.Account, error)
	Set(ctx context.Context, a dom.Account) error
	Invalidate(ctx context.Context, id int64) error
}

// UpdateInput is a partial update. Nil pointers and unset Nullables leave the field unchanged;
// Age and Email may be explicitly cleared.
type UpdateInput struct {
	Username *string
	Password *string
	Age      dom.Nullable[int32]
	Gender   *dom.Gender
	Email    dom.Nullable[string]
}

// AccountService owns the account rules: username uniqueness among live accounts,
// password hashing, and the one-way soft delete.
type AccountService struct {
	repo   repo.AccountRepo
	hasher PasswordHasher
	cache  AccountCache
	log    *zap.Logger
	sf     singleflight.Group

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAccountService creates an AccountService. If c is nil, caching is disabled.
func NewAccountService(r repo.AccountRepo, h PasswordHasher, c AccountCache, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{repo: r, hasher: h, cache: c, log: log}
}

// Create registers a new account. The username must not belong to a live account.
func (s *AccountService) Create(ctx context.Context, username, password string, age *int32, gender dom.Gender, email *string) (acc dom.Account, err error) {
	defer observe("create", &err)
	log := logger.FromContext(ctx, s.log)

	username = strings.TrimSpace(username)
	if username == "" {
		return dom.Account{}, apperr.MalformedRequest("username is required")
	}
	if !gender.Valid() {
		return dom.Account{}, apperr.MalformedRequest("gender must be Male or Female")
	}

	exists, err := s.repo.ExistsByUsername(ctx, username, nil)
	if err != nil {
		return dom.Account{}, dbFailure(log, "check username", err)
	}
	if exists {
		return dom.Account{}, apperr.DuplicateUsername(username)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return dom.Account{}, hashingFailure(log, err)
	}

	acc, err = s.repo.Insert(ctx, dom.NewAccount{
		Username:     username,
		PasswordHash: hash,
		Age:          age,
		Gender:       gender,
		Email:        email,
	})
	if err != nil {
		// lost the race against a concurrent create; the partial unique index caught it
		if utils.IsPGUniqueViolation(err) {
			return dom.Account{}, apperr.DuplicateUsername(username)
		}
		return dom.Account{}, dbFailure(log, "insert account", err)
	}
	log.Info("account created", zap.Int64("account_id", acc.ID), zap.String("username", acc.Username))
	return acc, nil
}

// sharedLookupTimeout bounds a coalesced id lookup once it no longer follows any caller's context.
const sharedLookupTimeout = 5 * time.Second

// FindByID returns the live account with id, or nil if there is none.
// The returned account never carries the password hash.
func (s *AccountService) FindByID(ctx context.Context, id int64) (_ *dom.Account, err error) {
	defer observe("find_by_id", &err)
	if s.cache == nil {
		return s.loadByID(ctx, id)
	}

	log := logger.FromContext(ctx, s.log)
	ch := s.sf.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		// Detached from the first caller: the result goes to every waiter on id.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()

		a, cerr := s.cache.Get(fctx, id)
		if cerr != nil {
			log.Warn("account cache get failed", zap.Int64("account_id", id), zap.Error(cerr))
		}
		if a != nil {
			metrics.AccountCacheLookups.WithLabelValues("hit").Inc()
			return a, nil
		}
		metrics.AccountCacheLookups.WithLabelValues("miss").Inc()

		a, err := s.loadByID(fctx, id)
		if err != nil || a == nil {
			return a, err
		}
		if cerr := s.cache.Set(fctx, *a); cerr != nil {
			log.Warn("account cache set failed", zap.Int64("account_id", id), zap.Error(cerr))
		}
		return a, nil
	})

	var v interface{}
	select {
	case <-ctx.Done():
		return nil, dbFailure(log, "find account by id", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v = res.Val
	}
	a, _ := v.(*dom.Account)
	if a == nil {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (s *AccountService) loadByID(ctx context.Context, id int64) (*dom.Account, error) {
	a, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbFailure(logger.FromContext(ctx, s.log), "find account by id", err)
	}
	a.PasswordHash = ""
	return &a, nil
}

// FindByUsername returns the live account with username or AccountNotFound.
func (s *AccountService) FindByUsername(ctx context.Context, username string) (acc dom.Account, err error) {
	defer observe("find_by_username", &err)
	return s.findByUsername(ctx, strings.TrimSpace(username))
}

func (s *AccountService) findByUsername(ctx context.Context, username string) (dom.Account, error) {
	a, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrNoRows) {
		return dom.Account{}, apperr.AccountNotFound(username)
	}
	if err != nil {
		return dom.Account{}, dbFailure(logger.FromContext(ctx, s.log), "find account by username", err)
	}
	return a, nil
}

// Update applies a partial update to a live account.
func (s *AccountService) Update(ctx context.Context, id int64, in UpdateInput) (acc dom.Account, err error) {
	defer observe("update", &err)
	log := logger.FromContext(ctx, s.log)

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNoRows) {
			return dom.Account{}, apperr.AccountNotFound(id)
		}
		return dom.Account{}, dbFailure(log, "find account by id", err)
	}

	patch := dom.AccountPatch{Age: in.Age, Gender: in.Gender, Email: in.Email}

	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return dom.Account{}, apperr.MalformedRequest("username must not be empty")
		}
		exists, err := s.repo.ExistsByUsername(ctx, name, &id)
		if err != nil {
			return dom.Account{}, dbFailure(log, "check username", err)
		}
		if exists {
			return dom.Account{}, apperr.DuplicateUsername(name)
		}
		patch.Username = &name
	}
	if in.Gender != nil && !in.Gender.Valid() {
		return dom.Account{}, apperr.MalformedRequest("gender must be Male or Female")
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return dom.Account{}, hashingFailure(log, err)
		}
		patch.PasswordHash = &hash
	}

	acc, err = s.repo.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNoRows):
			// deleted between the load and the write
			return dom.Account{}, apperr.AccountNotFound(id)
		case utils.IsPGUniqueViolation(err) && patch.Username != nil:
			return dom.Account{}, apperr.DuplicateUsername(*patch.Username)
		}
		return dom.Account{}, dbFailure(log, "update account", err)
	}
	s.invalidate(ctx, log, id)
	log.Info("account updated", zap.Int64("account_id", acc.ID), zap.Bool("password_changed", in.Password != nil))
	return acc, nil
}

// Delete soft-deletes a live account. There is no way back.
func (s *AccountService) Delete(ctx context.Context, id int64) (err error) {
	defer observe("delete", &err)
	log := logger.FromContext(ctx, s.log)

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNoRows) {
			return apperr.AccountNotFound(id)
		}
		return dbFailure(log, "find account by id", err)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNoRows) {
			return apperr.AccountNotFound(id)
		}
		return dbFailure(log, "soft delete account", err)
	}
	s.invalidate(ctx, log, id)
	log.Info("account deleted", zap.Int64("account_id", id))
	return nil
}

// Authenticate checks username and password. An unknown username and a wrong
// password both yield InvalidCredential; the reason is only logged.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (acc dom.Account, err error) {
	defer observe("authenticate", &err)
	log := logger.FromContext(ctx, s.log)
	username = strings.TrimSpace(username)

	acc, err = s.findByUsername(ctx, username)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindAccountNotFound {
			return dom.Account{}, err
		}
		s.equalizeTiming(password)
		log.Info("authentication failed", zap.String("username", username), zap.String("reason", "unknown username"))
		return dom.Account{}, apperr.InvalidCredential()
	}

	ok, verr := s.hasher.Verify(password, acc.PasswordHash)
	if verr != nil {
		log.Warn("authentication failed", zap.Int64("account_id", acc.ID), zap.String("reason", "unverifiable digest"), zap.Error(verr))
		return dom.Account{}, apperr.InvalidCredential()
	}
	if !ok {
		log.Info("authentication failed", zap.Int64("account_id", acc.ID), zap.String("reason", "wrong password"))
		return dom.Account{}, apperr.InvalidCredential()
	}
	log.Info("authentication succeeded", zap.Int64("account_id", acc.ID))
	return acc, nil
}

// equalizeTiming spends one hash comparison so unknown usernames cost the same as wrong passwords.
func (s *AccountService) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("timing-equalizer")
	})
	if s.dummyDigest != "" {
		_, _ = s.hasher.Verify(password, s.dummyDigest)
	}
}

func (s *AccountService) invalidate(ctx context.Context, log *zap.Logger, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn("account cache invalidate failed", zap.Int64("account_id", id), zap.Error(err))
	}
}

func dbFailure(log *zap.Logger, op string, err error) error {
	log.Error("storage error", zap.String("op", op), zap.Error(err))
	return apperr.DbFailure(op, err)
}

func hashingFailure(log *zap.Logger, err error) error {
	log.Error("password hashing failed", zap.Error(err))
	if errors.Is(err, apperr.ErrHashingFailure) {
		return err
	}
	return apperr.HashingFailure(err)
}

func observe(op string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = apperr.KindOf(*err).String()
	}
	metrics.ObserveAccountOp(op, outcome)
}
