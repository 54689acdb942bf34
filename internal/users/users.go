// Package users manages accounts in the record store and the login
// sessions of this process.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/weather-des/internal/recordstore"
	"github.com/i474232898/weather-des/internal/screen"
)

// TableUsers is the record-store table holding accounts.
const TableUsers = "tblUser"

// Account statuses written to the Status column.
const (
	StatusRegistered = "Registered"
	StatusLoggedIn   = "Logged In"
	StatusLoggedOut  = "Logged Out"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrLoginFailed        = errors.New("login failed")
	ErrNotLoggedIn        = errors.New("must be logged in")
	ErrInvalidCredentials = errors.New("user name and password are required")
)

var userExample = recordstore.Record{
	"PersonID PK": "A_LOOONG_NAME" + strings.Repeat("X", 50),
	"Password":    "A_LOOONG_PASSWORD" + strings.Repeat("X", 50),
	"Status":      "STATUS_STRING",
}

// Session is one logged-in user and the screen they are looking at.
type Session struct {
	Token      string    `json:"token"`
	User       string    `json:"user"`
	Screen     screen.ID `json:"screen"`
	LoggedInAt time.Time `json:"loggedInAt"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(m *Manager) {
		m.hashCost = cost
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager registers users, checks credentials and tracks sessions.
type Manager struct {
	store    recordstore.Store
	logger   *zap.Logger
	hashCost int
	now      func() time.Time

	// regMu serializes the lookup and insert in Register.
	regMu sync.Mutex

	mu       sync.RWMutex
	ready    bool
	sessions map[string]*Session
}

func NewManager(store recordstore.Store, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:    store,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) ensureTable(ctx context.Context) error {
	m.mu.RLock()
	ready := m.ready
	m.mu.RUnlock()
	if ready {
		return nil
	}

	if err := m.store.Create(ctx, TableUsers, userExample); err != nil {
		return fmt.Errorf("create %s: %w", TableUsers, err)
	}

	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
	return nil
}

// Register creates an account unless the user name is taken.
func (m *Manager) Register(ctx context.Context, user, password string) error {
	user = strings.TrimSpace(user)
	if user == "" || password == "" {
		return ErrInvalidCredentials
	}
	m.regMu.Lock()
	defer m.regMu.Unlock()

	if err := m.ensureTable(ctx); err != nil {
		return err
	}

	_, err := m.store.Select(ctx, TableUsers, recordstore.Eq("PersonID", user))
	switch {
	case err == nil:
		return ErrUserExists
	case !errors.Is(err, recordstore.ErrNoData):
		return fmt.Errorf("look up %s: %w", user, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := m.putStatus(ctx, user, string(hash), StatusRegistered); err != nil {
		return err
	}
	m.logger.Info("user registered", zap.String("user", user))
	return nil
}

// Login checks the credentials, marks the account logged in and opens a
// session on the Current Condition screen.
func (m *Manager) Login(ctx context.Context, user, password string) (Session, error) {
	user = strings.TrimSpace(user)
	if user == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := m.ensureTable(ctx); err != nil {
		return Session{}, err
	}

	rows, err := m.store.Select(ctx, TableUsers, recordstore.Eq("PersonID", user))
	if errors.Is(err, recordstore.ErrNoData) {
		return Session{}, ErrLoginFailed
	}
	if err != nil {
		return Session{}, fmt.Errorf("look up %s: %w", user, err)
	}

	hash := rows[0].String("Password")
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		m.logger.Info("login rejected", zap.String("user", user))
		return Session{}, ErrLoginFailed
	}

	if err := m.putStatus(ctx, user, hash, StatusLoggedIn); err != nil {
		return Session{}, err
	}

	s := &Session{
		Token:      uuid.NewString(),
		User:       user,
		Screen:     screen.Current,
		LoggedInAt: m.now().UTC(),
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	m.logger.Info("user logged in", zap.String("user", user))
	return *s, nil
}

// Logout marks the account logged out and closes the session.
func (m *Manager) Logout(ctx context.Context, token string) error {
	s, err := m.Session(token)
	if err != nil {
		return err
	}

	rows, err := m.store.Select(ctx, TableUsers, recordstore.Eq("PersonID", s.User))
	if err != nil {
		return fmt.Errorf("look up %s: %w", s.User, err)
	}
	if err := m.putStatus(ctx, s.User, rows[0].String("Password"), StatusLoggedOut); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()

	m.logger.Info("user logged out", zap.String("user", s.User))
	return nil
}

// Session returns a copy of the session for token.
func (m *Manager) Session(token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotLoggedIn
	}
	return *s, nil
}

// SetScreen moves the session to id.
func (m *Manager) SetScreen(token string, id screen.ID) (Session, error) {
	if !id.Valid() {
		return Session{}, fmt.Errorf("unknown screen %q", id)
	}
	return m.update(token, func(s *Session) { s.Screen = id })
}

// Next moves the session to the following screen.
func (m *Manager) Next(token string) (Session, error) {
	return m.update(token, func(s *Session) { s.Screen = s.Screen.Next() })
}

// Prev moves the session to the preceding screen.
func (m *Manager) Prev(token string) (Session, error) {
	return m.update(token, func(s *Session) { s.Screen = s.Screen.Prev() })
}

func (m *Manager) update(token string, fn func(*Session)) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotLoggedIn
	}
	fn(s)
	return *s, nil
}

func (m *Manager) putStatus(ctx context.Context, user, hash, status string) error {
	err := m.store.Put(ctx, TableUsers, recordstore.Record{
		"PersonID": user,
		"Password": hash,
		"Status":   status,
	})
	if err != nil {
		return fmt.Errorf("store %s status: %w", user, err)
	}
	return nil
}
