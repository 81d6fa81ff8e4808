// Package session holds the client-side authentication state for one user
// of the dashboard.
//
// A Store records the current user, whether they are authenticated, whether
// an operation is in flight, and the last error. All mutation goes through
// Login, Register, Logout, CheckAuth and ClearError. The network-backed
// operations are serialized: a call made while another is running waits for
// it, so the final state is the one left by the last call to start.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scdash-dev/scdash/internal/cli/client"
)

const (
	defaultLoginError    = "Login failed"
	defaultRegisterError = "Registration failed"
)

var errNoUser = errors.New("server returned no user")

// Authenticator is the external authentication client a Store drives.
// *client.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, creds client.Credentials) (*client.Token, error)
	Register(ctx context.Context, req client.RegisterRequest) (*client.Token, error)
	Logout(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*client.User, error)
	GetTokens() client.Tokens
	ClearAuth()
}

// State is a snapshot of the session. IsAuthenticated is true exactly when
// User is set by a successful operation.
type State struct {
	User            *client.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Listener receives the new state after every change
type Listener func(State)

type subscription struct {
	id uint64
	fn Listener
}

// Store is the session state container
type Store struct {
	auth   Authenticator
	logger zerolog.Logger

	// opMu serializes the network-backed operations
	opMu sync.Mutex

	mu        sync.Mutex
	state     State
	listeners []subscription
	nextID    uint64
}

// New returns a Store in the unauthenticated state
func New(auth Authenticator, logger zerolog.Logger) *Store {
	return &Store{
		auth:   auth,
		logger: logger,
	}
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with the new state after each change.
// The returned func removes the listener.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Login exchanges credentials for a token, then loads the current user. On
// failure the state records the error message and the error is returned.
func (s *Store) Login(ctx context.Context, creds client.Credentials) error {
	return s.authenticate(ctx, "login", defaultLoginError, func(ctx context.Context) error {
		_, err := s.auth.Login(ctx, creds)
		return err
	})
}

// Register creates an account, then loads the current user. Failure handling
// matches Login.
func (s *Store) Register(ctx context.Context, req client.RegisterRequest) error {
	return s.authenticate(ctx, "register", defaultRegisterError, func(ctx context.Context) error {
		_, err := s.auth.Register(ctx, req)
		return err
	})
}

// Logout ends the session. A failing server call is logged and otherwise
// ignored; the state always ends cleared.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.update(func(st *State) {
		st.IsLoading = true
	})

	if err := s.auth.Logout(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Logout request failed")
	}

	s.update(func(st *State) {
		*st = State{}
	})
}

// CheckAuth restores the session from a stored token. Without a token no
// request is made. A token the server rejects is cleared.
func (s *Store) CheckAuth(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.auth.GetTokens().AccessToken == "" {
		s.update(setUnauthenticated)
		return
	}

	s.update(func(st *State) {
		st.IsLoading = true
	})

	user, err := s.auth.GetCurrentUser(ctx)
	if err == nil && user == nil {
		err = errNoUser
	}
	if err != nil {
		s.logger.Debug().Err(err).Msg("Stored token rejected, clearing credentials")
		s.auth.ClearAuth()
		s.update(setUnauthenticated)
		return
	}

	s.update(func(st *State) {
		st.User = user
		st.IsAuthenticated = true
		st.IsLoading = false
	})
}

// ClearError resets the error and leaves everything else untouched
func (s *Store) ClearError() {
	s.update(func(st *State) {
		st.Error = ""
	})
}

// authenticate runs a credential exchange followed by a user fetch
func (s *Store) authenticate(ctx context.Context, op, fallback string, exchange func(context.Context) error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.update(func(st *State) {
		st.IsLoading = true
		st.Error = ""
	})

	user, err := s.exchangeAndFetch(ctx, exchange)
	if err != nil {
		msg := ErrorMessage(err, fallback)
		s.logger.Debug().Err(err).Str("operation", op).Msg("Authentication failed")
		s.update(func(st *State) {
			st.User = nil
			st.IsAuthenticated = false
			st.IsLoading = false
			st.Error = msg
		})
		return err
	}

	s.update(func(st *State) {
		st.User = user
		st.IsAuthenticated = true
		st.IsLoading = false
	})
	return nil
}

func (s *Store) exchangeAndFetch(ctx context.Context, exchange func(context.Context) error) (*client.User, error) {
	if err := exchange(ctx); err != nil {
		return nil, err
	}

	user, err := s.auth.GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errNoUser
	}
	return user, nil
}

func setUnauthenticated(st *State) {
	st.User = nil
	st.IsAuthenticated = false
	st.IsLoading = false
}

// update applies fn under the state lock, then notifies listeners outside it
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.snapshotLocked()
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		user := *st.User
		st.User = &user
	}
	return st
}

// ErrorMessage reduces err to a display string: the server's detail when
// there is one, else the error text, else fallback.
func ErrorMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
