// Package session holds the authenticated-user context for the lifetime of
// the process and mirrors it into a persistent store.
//
// A Session is created once at startup with New, hydrated from the store,
// and shared by every view. Views that need to react to changes call
// Subscribe. The invariant IsAuthenticated() == (access token != "") holds
// after every operation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/zohaib/garage/pkg/client"
	"github.com/zohaib/garage/pkg/domain"
	"github.com/zohaib/garage/pkg/store"
)

// MsgLoginFailed is shown when the server gives no reason for a failed login.
const MsgLoginFailed = "Login failed. Please check your credentials."

// Authenticator is the slice of the API client the session needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)
	GetUserInfo(ctx context.Context, token string) (*domain.User, error)
}

// Event tells subscribers what changed.
type Event int

const (
	// EventChanged covers loading/error/profile updates.
	EventChanged Event = iota
	EventLoggedIn
	EventLoggedOut
	// EventExpired means a refresh failed and the session was wiped.
	EventExpired
)

func (e Event) String() string {
	switch e {
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	case EventExpired:
		return "expired"
	default:
		return "changed"
	}
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
	Loading      bool
	LastError    string
}

// Authenticated reports whether an access token is held.
func (s Snapshot) Authenticated() bool {
	return s.AccessToken != ""
}

// Session is the process-wide authentication state.
type Session struct {
	auth   Authenticator
	store  store.Store
	logger *slog.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	user         *domain.User
	loading      bool
	lastError    string

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for swallowed failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session and loads the persisted tokens. The cached profile
// is not read until Initialize.
func New(ctx context.Context, auth Authenticator, st store.Store, opts ...Option) *Session {
	s := &Session{
		auth:   auth,
		store:  st,
		logger: slog.New(slog.DiscardHandler),
		subs:   make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.accessToken = s.stored(ctx, store.KeyAccessToken)
	s.refreshToken = s.stored(ctx, store.KeyRefreshToken)
	return s
}

// Bind installs hooks on c so refreshes and refresh failures made by
// client.Send are reflected in this session.
func (s *Session) Bind(c *client.Client) {
	c.SetHooks(client.Hooks{
		TokenRefreshed: s.SetAccessToken,
		SessionExpired: s.Expire,
	})
}

// Login exchanges credentials for tokens, persists them and loads the
// profile. On failure LastError holds the server's detail message or
// MsgLoginFailed.
func (s *Session) Login(ctx context.Context, username, password string) bool {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
	s.publish(EventChanged)

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.publish(EventChanged)
	}()

	pair, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", "username", username, "err", err)
		msg := client.Detail(err)
		if msg == "" {
			msg = MsgLoginFailed
		}
		s.mu.Lock()
		s.lastError = msg
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	s.accessToken = pair.Access
	s.refreshToken = pair.Refresh
	s.mu.Unlock()
	s.persist(ctx, store.KeyAccessToken, pair.Access)
	s.persist(ctx, store.KeyRefreshToken, pair.Refresh)

	s.FetchUserInfo(ctx)
	s.publish(EventLoggedIn)
	return true
}

// FetchUserInfo replaces the profile with a fresh copy from the server.
// It does nothing without an access token, and a failure is only logged:
// a flaky profile endpoint must not end a valid session.
func (s *Session) FetchUserInfo(ctx context.Context) {
	token := s.AccessToken()
	if token == "" {
		return
	}

	u, err := s.auth.GetUserInfo(ctx, token)
	if err != nil {
		s.logger.Warn("fetch user info", "err", err)
		return
	}

	s.mu.Lock()
	if s.accessToken == "" {
		// Logged out while the request was in flight.
		s.mu.Unlock()
		return
	}
	s.user = u
	s.mu.Unlock()

	if data, err := json.Marshal(u); err == nil {
		s.persist(ctx, store.KeyUser, string(data))
	}
	s.publish(EventChanged)
}

// Logout clears memory and every persisted key. Calling it twice is fine.
func (s *Session) Logout(ctx context.Context) {
	s.clearMemory()
	if err := store.Clear(ctx, s.store); err != nil {
		s.logger.Error("clear session store", "err", err)
	}
	s.publish(EventLoggedOut)
}

// Initialize restores the cached profile (ignoring a corrupt cache) and then
// refreshes it from the server. Without an access token it does nothing.
func (s *Session) Initialize(ctx context.Context) {
	if s.AccessToken() == "" {
		return
	}

	if raw := s.stored(ctx, store.KeyUser); raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("ignoring corrupt cached user", "err", err)
		} else {
			s.mu.Lock()
			s.user = &u
			s.mu.Unlock()
			s.publish(EventChanged)
		}
	}

	s.FetchUserInfo(ctx)
}

// Expire drops the in-memory session after a failed refresh. The client
// has already wiped the store.
func (s *Session) Expire(err error) {
	s.logger.Warn("session expired", "err", err)
	s.clearMemory()
	s.publish(EventExpired)
}

// SetAccessToken mirrors a refreshed access token into memory.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
	s.publish(EventChanged)
}

// IsAuthenticated reports whether an access token is held.
func (s *Session) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// AccessToken returns the current access token or "".
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// User returns a copy of the profile, or nil when none is loaded.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Loading reports whether a login is in progress.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the last login error message.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Snapshot returns a copy of the whole state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		Loading:      s.loading,
		LastError:    s.lastError,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Subscribe returns a channel of events and a func that stops delivery and
// closes the channel. Events are dropped for a subscriber whose buffer is full.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publish(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Session) clearMemory() {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.lastError = ""
	s.mu.Unlock()
}

func (s *Session) stored(ctx context.Context, key string) string {
	v, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("read session store", "key", key, "err", err)
		}
		return ""
	}
	return v
}

func (s *Session) persist(ctx context.Context, key, value string) {
	if err := s.store.Set(ctx, key, value); err != nil {
		s.logger.Error("write session store", "key", key, "err", err)
	}
}
