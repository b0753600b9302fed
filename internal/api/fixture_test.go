package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"patient-portal/internal/dal"
	"patient-portal/internal/model"
	"patient-portal/internal/repository"
	"patient-portal/internal/service"
	"patient-portal/internal/session"
)

const testSecret = "test-secret"

type memorySessions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Session
}

func (m *memorySessions) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = *s
	return nil
}

func (m *memorySessions) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memorySessions) ListByUser(_ context.Context, userID int64) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memorySessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeUserRepo struct {
	repository.UserRepository
	users map[int64]*model.User
}

func (f fakeUserRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f fakeUserRepo) ListRecent(context.Context, int) ([]model.UserSummary, error) {
	return nil, nil
}

func (f fakeUserRepo) ListByRole(context.Context, string) ([]model.UserSummary, error) {
	return nil, nil
}

type fakeProfileRepo struct {
	repository.ProfileRepository
}

func (fakeProfileRepo) FindByUserID(context.Context, int64) (*model.Profile, error) {
	return nil, repository.ErrNotFound
}

type fakeResultRepo struct {
	repository.ResultRepository
	results map[int64]model.ResultDetails
}

func (f fakeResultRepo) Details(_ context.Context, id int64) (*model.ResultDetails, error) {
	if r, ok := f.results[id]; ok {
		return &r, nil
	}
	return nil, repository.ErrNotFound
}

func (f fakeResultRepo) ListAll(context.Context) ([]model.ResultDetails, error) {
	var out []model.ResultDetails
	for _, r := range f.results {
		out = append(out, r)
	}
	return out, nil
}

func (f fakeResultRepo) ListByPatient(_ context.Context, patientID int64) ([]model.ResultDetails, error) {
	var out []model.ResultDetails
	for _, r := range f.results {
		if r.UserID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fakeResultRepo) Stats(context.Context) (*model.Stats, error) {
	return &model.Stats{TotalPatients: len(f.results)}, nil
}

// stubUsers answers for the accounts in passwords and records mutations.
type stubUsers struct {
	service.UserService
	accounts  map[string]*model.User
	passwords map[string]string
	deleted   []int64
	signedUp  []service.NewUser
	profiles  []service.ProfileUpdate
}

func (s *stubUsers) SignUp(_ context.Context, in service.NewUser) (*model.User, error) {
	if _, taken := s.accounts[strings.ToLower(in.Email)]; taken {
		return nil, service.ErrEmailTaken
	}
	s.signedUp = append(s.signedUp, in)
	return &model.User{ID: int64(100 + len(s.signedUp)), Email: in.Email, Role: in.Role}, nil
}

func (s *stubUsers) UpdateProfile(_ context.Context, in service.ProfileUpdate) (*model.Profile, error) {
	s.profiles = append(s.profiles, in)
	return &model.Profile{UserID: in.UserID, Age: in.Age, BirthDate: in.BirthDate}, nil
}

func (s *stubUsers) Authenticate(_ context.Context, email, plain string) (*model.User, error) {
	u, ok := s.accounts[strings.ToLower(email)]
	if !ok || s.passwords[u.Email] != plain {
		return nil, service.ErrInvalidCredentials
	}
	return u, nil
}

func (s *stubUsers) ResetPassword(_ context.Context, email, newPassword string) error {
	u, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return service.ErrUserNotFound
	}
	s.passwords[u.Email] = newPassword
	return nil
}

func (s *stubUsers) ChangePassword(_ context.Context, userID int64, oldPassword, newPassword string) error {
	for _, u := range s.accounts {
		if u.ID != userID {
			continue
		}
		if s.passwords[u.Email] != oldPassword {
			return service.ErrWrongPassword
		}
		s.passwords[u.Email] = newPassword
		return nil
	}
	return service.ErrUserNotFound
}

func (s *stubUsers) DeleteUser(_ context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return service.ErrSelfDelete
	}
	s.deleted = append(s.deleted, targetID)
	return nil
}

type addedResult struct {
	doctorID, patientID int64
	image               service.Upload
}

type stubResults struct {
	service.ResultService
	added      []addedResult
	notPatient bool
}

func (s *stubResults) AddPatient(_ context.Context, doctorID, patientID int64, image service.Upload) (*model.Result, error) {
	if s.notPatient {
		return nil, service.ErrNotPatient
	}
	s.added = append(s.added, addedResult{doctorID: doctorID, patientID: patientID, image: image})
	return &model.Result{ID: 1, DoctorID: doctorID, UserID: patientID}, nil
}

func (s *stubResults) UpdateResult(context.Context, int64, string, string) error {
	return nil
}

type fixture struct {
	app      *fiber.App
	codec    *session.Codec
	sessions *memorySessions
	users    *stubUsers
	results  *stubResults
	guard    *RouteGuard
}

func newFixture(t *testing.T, protected ...string) *fixture {
	t.Helper()
	return newLimitedFixture(t, 1000, protected...)
}

func newLimitedFixture(t *testing.T, rateLimit int, protected ...string) *fixture {
	t.Helper()

	if len(protected) == 0 {
		protected = []string{"/admin", "/doctor", "/patient"}
	}

	accounts := map[int64]*model.User{
		1: {ID: 1, FirstName: "Ada", LastName: "Admin", Email: "admin@example.com", Role: model.RoleAdmin},
		2: {ID: 2, FirstName: "Dan", LastName: "Doctor", Email: "doctor@example.com", Role: model.RoleDoctor},
		3: {ID: 3, FirstName: "Pia", LastName: "Patient", Email: "patient@example.com", Role: model.RolePatient},
	}

	f := &fixture{
		codec:    session.NewCodec(testSecret),
		sessions: &memorySessions{rows: map[uuid.UUID]model.Session{}},
		users: &stubUsers{
			accounts:  map[string]*model.User{},
			passwords: map[string]string{},
		},
		results: &stubResults{},
	}
	for _, u := range accounts {
		f.users.accounts[u.Email] = u
		f.users.passwords[u.Email] = "Passw0rd!"
	}

	resultRepo := fakeResultRepo{results: map[int64]model.ResultDetails{
		10: {Result: model.Result{ID: 10, DoctorID: 2, UserID: 3, Status: model.StatusToExamine}},
		11: {Result: model.Result{ID: 11, DoctorID: 2, UserID: 99, Status: model.StatusConfirmed}},
	}}

	manager := session.NewManager(f.codec, f.sessions, false)
	f.guard = NewRouteGuard(protected, []string{"/"}, manager, false)

	router := &Router{
		ServiceName:         "patient-portal-test",
		Sessions:            manager,
		Guard:               f.guard,
		Store:               dal.NewStore(fakeUserRepo{users: accounts}, fakeProfileRepo{}, f.sessions, resultRepo),
		Auth:                NewAuthHandler(f.users, manager),
		Admin:               NewAdminHandler(f.users),
		Doctor:              NewDoctorHandler(f.results, nil),
		Patient:             NewPatientHandler(f.results),
		Settings:            NewSettingsHandler(f.users),
		RateLimitMax:        rateLimit,
		RateLimitExpiration: time.Minute,
	}

	f.app = fiber.New()
	router.SetupRoutes(f.app)

	return f
}

func (f *fixture) cookie(t *testing.T, userID int64, role string, ttl time.Duration) *http.Cookie {
	t.Helper()
	token, err := f.codec.Encode(&session.Claims{
		UserID:   userID,
		UserRole: role,
		Expiry:   time.Now().Add(ttl),
	})
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: token}
}

func (f *fixture) do(t *testing.T, req *http.Request, cookie *http.Cookie) *http.Response {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func formRequest(method, target string, values url.Values) *http.Request {
	req, _ := http.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
