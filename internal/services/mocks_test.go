package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkgauth "github.com/BradenHooton/gatekeeper/pkg/auth"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// testClock is a manually advanced clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func attemptKey(formType models.FormType, identifier string) string {
	return string(formType) + "|" + identifier
}

// MockAttemptStore is an in-memory AttemptStore. The Func fields override
// individual operations for error injection.
type MockAttemptStore struct {
	GetFunc    func(ctx context.Context, formType models.FormType, identifier string) (*models.AttemptRecord, error)
	CreateFunc func(ctx context.Context, formType models.FormType, identifier string, at time.Time) (*models.AttemptRecord, error)

	mu      sync.Mutex
	nextID  int64
	records map[string]*models.AttemptRecord
	creates int
}

func NewMockAttemptStore() *MockAttemptStore {
	return &MockAttemptStore{records: make(map[string]*models.AttemptRecord)}
}

func (m *MockAttemptStore) Get(ctx context.Context, formType models.FormType, identifier string) (*models.AttemptRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, formType, identifier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[attemptKey(formType, identifier)]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (m *MockAttemptStore) Create(ctx context.Context, formType models.FormType, identifier string, at time.Time) (*models.AttemptRecord, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, formType, identifier, at)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := attemptKey(formType, identifier)
	if _, ok := m.records[key]; ok {
		return nil, fmt.Errorf("failed to create attempt record: %w", models.ErrConflict)
	}

	m.nextID++
	m.creates++
	rec := &models.AttemptRecord{ID: m.nextID, FormType: formType, Identifier: identifier, Attempts: 1, LastAttempt: at}
	m.records[key] = rec

	clone := *rec
	return &clone, nil
}

func (m *MockAttemptStore) Increment(_ context.Context, rec *models.AttemptRecord, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.records[attemptKey(rec.FormType, rec.Identifier)]
	if !ok {
		return fmt.Errorf("failed to increment attempt record: %w", models.ErrNotFound)
	}
	stored.Attempts++
	stored.LastAttempt = at
	rec.Attempts = stored.Attempts
	rec.LastAttempt = stored.LastAttempt
	return nil
}

func (m *MockAttemptStore) Reset(_ context.Context, rec *models.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stored, ok := m.records[attemptKey(rec.FormType, rec.Identifier)]; ok {
		stored.Attempts = 0
	}
	rec.Attempts = 0
	return nil
}

// Attempts returns the stored counter, or -1 when no record exists
func (m *MockAttemptStore) Attempts(formType models.FormType, identifier string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[attemptKey(formType, identifier)]
	if !ok {
		return -1
	}
	return rec.Attempts
}

// Seed stores a record directly
func (m *MockAttemptStore) Seed(formType models.FormType, identifier string, attempts int, last time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.records[attemptKey(formType, identifier)] = &models.AttemptRecord{
		ID: m.nextID, FormType: formType, Identifier: identifier, Attempts: attempts, LastAttempt: last,
	}
}

// MockUserRepository keeps accounts in memory. The Func fields override
// individual operations for error injection.
type MockUserRepository struct {
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc     func(ctx context.Context, user *models.User) (*models.User, error)

	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[int64]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (m *MockUserRepository) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *MockUserRepository) GetByResetCode(_ context.Context, code string) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return u.PasswordResetCode != nil && *u.PasswordResetCode == code
	})
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return nil, models.ErrConflict
		}
	}

	m.nextID++
	stored := cloneUser(user)
	stored.ID = m.nextID
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	m.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return nil, models.ErrNotFound
	}
	stored := cloneUser(user)
	m.users[user.ID] = stored
	return cloneUser(stored), nil
}

func (m *MockUserRepository) ConfirmByEmailAndCode(_ context.Context, email, code string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email && u.ConfirmationCode != nil && *u.ConfirmationCode == code {
			u.IsConfirmed = true
			u.ConfirmationCode = nil
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("failed to confirm user: %w", models.ErrNotFound)
}

// Put stores user as-is and returns its id
func (m *MockUserRepository) Put(user *models.User) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	stored := cloneUser(user)
	stored.ID = m.nextID
	m.users[stored.ID] = stored
	return stored.ID
}

// Stored returns the current copy of the account with id
func (m *MockUserRepository) Stored(id int64) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return cloneUser(u)
}

// MockTokenIssuer returns a deterministic token
type MockTokenIssuer struct {
	IssueFunc func(subject string, userID int64) (string, error)
}

func (m *MockTokenIssuer) Issue(subject string, userID int64) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(subject, userID)
	}
	return fmt.Sprintf("token-%s-%d", subject, userID), nil
}

// sentMessage is a notification captured by MockNotifier
type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// MockNotifier records queued notifications
type MockNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *MockNotifier) Send(to, subject, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{To: to, Subject: subject, Body: body})
}

func (m *MockNotifier) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// testEnv wires every service against in-memory collaborators
type testEnv struct {
	clock    *testClock
	attempts *MockAttemptStore
	users    *MockUserRepository
	tokens   *MockTokenIssuer
	notifier *MockNotifier
	hasher   *pkgauth.BcryptHasher
	limits   *RateLimitService

	auth     *AuthService
	register *RegistrationService
	reset    *PasswordResetService
	profile  *UserService
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)

	composer, err := NewEmailComposer()
	if err != nil {
		panic(err)
	}

	env := &testEnv{
		clock:    newTestClock(),
		attempts: NewMockAttemptStore(),
		users:    NewMockUserRepository(),
		tokens:   &MockTokenIssuer{},
		notifier: &MockNotifier{},
		hasher:   pkgauth.NewBcryptHasher(4),
	}

	env.limits = NewRateLimitService(env.attempts, DefaultRateLimitConfig(), logger)
	env.limits.now = env.clock.Now

	env.auth = NewAuthService(env.users, env.hasher, env.tokens, env.limits, logger, auditLogger)
	env.register = NewRegistrationService(env.users, env.hasher, env.limits, env.notifier, composer, 6, logger, auditLogger)
	env.reset = NewPasswordResetService(env.users, env.hasher, env.limits, env.notifier, composer, DefaultResetCodeTTL, logger, auditLogger)
	env.reset.now = env.clock.Now
	env.profile = NewUserService(env.users, logger)

	return env
}

// seedUser stores an account with a hashed password
func (e *testEnv) seedUser(email, password string, confirmed bool) *models.User {
	hashed, err := e.hasher.Hash(password)
	if err != nil {
		panic(err)
	}
	u := &models.User{
		FirstName:      "Alice",
		LastName:       "Example",
		Email:          email,
		HashedPassword: hashed,
		IsConfirmed:    confirmed,
	}
	u.ID = e.users.Put(u)
	return u
}
