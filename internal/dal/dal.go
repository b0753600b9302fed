package dal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"patient-portal/internal/model"
	"patient-portal/internal/repository"
	"patient-portal/internal/session"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
)

const recentUsersLimit = 10

// VerifyFunc resolves the session of the request a Scope belongs to.
type VerifyFunc func() (*session.Claims, error)

type Store struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	sessions repository.SessionRepository
	results  repository.ResultRepository
}

func NewStore(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	results repository.ResultRepository,
) *Store {
	return &Store{users: users, profiles: profiles, sessions: sessions, results: results}
}

// Scope is the read side of the store bound to a single request. Reads are
// memoized for the lifetime of the scope and concurrent duplicates share one
// query.
type Scope struct {
	ctx    context.Context
	store  *Store
	verify VerifyFunc

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string]memoEntry
}

type memoEntry struct {
	value any
	err   error
}

func (s *Store) Scope(ctx context.Context, verify VerifyFunc) *Scope {
	return &Scope{
		ctx:    ctx,
		store:  s,
		verify: verify,
		memo:   make(map[string]memoEntry),
	}
}

func cached[T any](s *Scope, key string, load func() (T, error)) (T, error) {
	s.mu.Lock()
	if e, ok := s.memo[key]; ok {
		s.mu.Unlock()
		v, _ := e.value.(T)
		return v, e.err
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (any, error) {
		value, err := load()

		s.mu.Lock()
		s.memo[key] = memoEntry{value: value, err: err}
		s.mu.Unlock()

		return value, err
	})

	out, _ := v.(T)
	return out, err
}

// Session verifies the request session once per scope.
func (s *Scope) Session() (*session.Claims, error) {
	return cached(s, "session", func() (*session.Claims, error) {
		claims, err := s.verify()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return claims, nil
	})
}

func authed[T any](s *Scope, key, what string, load func() (T, error)) (T, error) {
	if _, err := s.Session(); err != nil {
		var zero T
		return zero, err
	}

	return cached(s, key, func() (T, error) {
		v, err := load()
		if err == nil {
			return v, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			var zero T
			return zero, ErrNotFound
		}

		slog.ErrorContext(s.ctx, "Failed to fetch "+what, slog.String("error", err.Error()))
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", what, err)
	})
}

func (s *Scope) CurrentUser() (*model.User, error) {
	claims, err := s.Session()
	if err != nil {
		return nil, err
	}
	return s.UserByID(claims.UserID)
}

func (s *Scope) Users() ([]model.UserSummary, error) {
	return authed(s, "users", "users", func() ([]model.UserSummary, error) {
		return s.store.users.List(s.ctx)
	})
}

func (s *Scope) UserByID(id int64) (*model.User, error) {
	return authed(s, "user:"+strconv.FormatInt(id, 10), "user", func() (*model.User, error) {
		return s.store.users.FindByID(s.ctx, id)
	})
}

// Profile returns an empty profile when the user never filled one in.
func (s *Scope) Profile(userID int64) (*model.Profile, error) {
	return authed(s, "profile:"+strconv.FormatInt(userID, 10), "profile", func() (*model.Profile, error) {
		p, err := s.store.profiles.FindByUserID(s.ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return &model.Profile{UserID: userID}, nil
		}
		return p, err
	})
}

func (s *Scope) SessionsFor(userID int64) ([]model.Session, error) {
	return authed(s, "sessions:"+strconv.FormatInt(userID, 10), "sessions", func() ([]model.Session, error) {
		return s.store.sessions.ListByUser(s.ctx, userID)
	})
}

func (s *Scope) Patients() ([]model.UserSummary, error) {
	return authed(s, "patients", "patients", func() ([]model.UserSummary, error) {
		return s.store.users.ListByRole(s.ctx, model.RolePatient)
	})
}

func (s *Scope) RecentUsers() ([]model.UserSummary, error) {
	return authed(s, "recent-users", "recent users", func() ([]model.UserSummary, error) {
		return s.store.users.ListRecent(s.ctx, recentUsersLimit)
	})
}

func (s *Scope) AllResults() ([]model.ResultDetails, error) {
	return authed(s, "results", "results", func() ([]model.ResultDetails, error) {
		return s.store.results.ListAll(s.ctx)
	})
}

func (s *Scope) ResultsForPatient(patientID int64) ([]model.ResultDetails, error) {
	return authed(s, "results:patient:"+strconv.FormatInt(patientID, 10), "results", func() ([]model.ResultDetails, error) {
		return s.store.results.ListByPatient(s.ctx, patientID)
	})
}

func (s *Scope) ResultsForDoctor(doctorID int64) ([]model.ResultDetails, error) {
	return authed(s, "results:doctor:"+strconv.FormatInt(doctorID, 10), "results", func() ([]model.ResultDetails, error) {
		return s.store.results.ListByDoctor(s.ctx, doctorID)
	})
}

func (s *Scope) Result(id int64) (*model.ResultDetails, error) {
	return authed(s, "result:"+strconv.FormatInt(id, 10), "result", func() (*model.ResultDetails, error) {
		return s.store.results.Details(s.ctx, id)
	})
}

func (s *Scope) Stats() (*model.Stats, error) {
	return authed(s, "stats", "stats", func() (*model.Stats, error) {
		return s.store.results.Stats(s.ctx)
	})
}
