package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"patient-portal/internal/model"
	"patient-portal/internal/prediction"
	"patient-portal/internal/repository"
)

type memoryUsers struct {
	repository.UserRepository

	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*model.User
	creates int
	writes  int
	withFK  map[int64]bool
}

func newMemoryUsers(users ...*model.User) *memoryUsers {
	m := &memoryUsers{byID: map[int64]*model.User{}, withFK: map[int64]bool{}}
	for _, u := range users {
		m.byID[u.ID] = u
		if u.ID > m.nextID {
			m.nextID = u.ID
		}
	}
	return m
}

func (m *memoryUsers) Create(_ context.Context, u *model.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return u.ID, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) EmailTaken(_ context.Context, email string, exceptID int64) (bool, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUsers) Update(_ context.Context, u *model.User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	m.writes++
	cp := *u
	cp.PasswordHash = m.byID[u.ID].PasswordHash
	m.byID[u.ID] = &cp
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.writes++
	u.PasswordHash = hash
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id int64) error {
	if m.withFK[id] {
		return &pgconn.PgError{Code: "23503"}
	}
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memoryProfiles struct {
	repository.ProfileRepository
	byUser map[int64]*model.Profile
	err    error
}

func (m *memoryProfiles) FindByUserID(_ context.Context, id int64) (*model.Profile, error) {
	if p, ok := m.byUser[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryProfiles) Upsert(_ context.Context, p *model.Profile) error {
	if m.err != nil {
		return m.err
	}
	cp := *p
	if cp.ProfilePicture == nil {
		if old, ok := m.byUser[p.UserID]; ok {
			cp.ProfilePicture = old.ProfilePicture
		}
	}
	m.byUser[p.UserID] = &cp
	return nil
}

type memoryResults struct {
	repository.ResultRepository
	rows      map[int64]*model.Result
	createErr error
}

func (m *memoryResults) Create(_ context.Context, r *model.Result) error {
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = int64(len(m.rows) + 1)
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memoryResults) FindByID(_ context.Context, id int64) (*model.Result, error) {
	if r, ok := m.rows[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryResults) Update(_ context.Context, id int64, diagnosis, status string) error {
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Diagnosis, r.Status = diagnosis, status
	return nil
}

func (m *memoryResults) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memoryBlobs struct {
	objects map[string][]byte
	putErr  error
}

func (b *memoryBlobs) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	b.objects[key] = data
	return b.URL(key), nil
}

func (b *memoryBlobs) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *memoryBlobs) URL(key string) string { return "https://cdn.test/" + key }

func (b *memoryBlobs) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "https://cdn.test/") {
		return "", false
	}
	return strings.TrimPrefix(url, "https://cdn.test/"), true
}

type stubPredictor struct {
	p   *prediction.Prediction
	err error
}

func (s stubPredictor) Predict(context.Context, string, []byte) (*prediction.Prediction, error) {
	return s.p, s.err
}

type recordingPublisher struct {
	published []*model.Result
}

func (r *recordingPublisher) PublishResultCreated(res *model.Result) error {
	r.published = append(r.published, res)
	return nil
}

type memoryTokens struct {
	repository.DeviceTokenRepository
	tokens map[string]int64
}

func (m *memoryTokens) Register(_ context.Context, userID int64, token string) error {
	m.tokens[token] = userID
	return nil
}

var errPredictionDown = errors.New("prediction service unreachable")
