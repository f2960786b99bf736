package odoo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Credentials identify the integration user on the remote database.
type Credentials struct {
	Database string
	Username string
	Password string
}

// Session holds the uid obtained from authenticate. It is shared by all
// requests; the uid is read-mostly and only written on (re)login.
type Session struct {
	caller Caller
	creds  Credentials
	log    *slog.Logger

	mu  sync.RWMutex
	uid int64
}

func NewSession(caller Caller, creds Credentials, log *slog.Logger) *Session {
	return &Session{caller: caller, creds: creds, log: log.With("component", "odoo-session")}
}

// Ensure returns the cached uid, logging in first if none is held.
func (s *Session) Ensure(ctx context.Context) (int64, error) {
	s.mu.RLock()
	uid := s.uid
	s.mu.RUnlock()
	if uid != 0 {
		return uid, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uid != 0 {
		return s.uid, nil
	}
	uid, err := s.login(ctx)
	if err != nil {
		return 0, err
	}
	s.uid = uid
	return uid, nil
}

// Authenticate forces a fresh login and replaces the cached uid.
func (s *Session) Authenticate(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, err := s.login(ctx)
	if err != nil {
		s.uid = 0
		return 0, err
	}
	s.uid = uid
	return uid, nil
}

// Invalidate drops the cached uid if it is still the stale one. A caller
// holding an old uid cannot clear a login made by someone else meanwhile.
func (s *Session) Invalidate(stale int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uid == stale {
		s.uid = 0
		s.log.Info("session invalidated", "uid", stale)
	}
}

// UID returns the cached uid, zero when logged out.
func (s *Session) UID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid
}

func (s *Session) login(ctx context.Context) (int64, error) {
	result, err := s.caller.Call(ctx, ServiceCommon, "authenticate", []any{
		s.creds.Database,
		s.creds.Username,
		s.creds.Password,
		map[string]any{},
	})
	if err != nil {
		if isAuthFailure(err) {
			return 0, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return 0, &CallError{Service: ServiceCommon, Method: "authenticate", Err: err}
	}

	// A rejected login is not a fault: authenticate returns false.
	uid, ok := toInt64(result)
	if !ok || uid <= 0 {
		return 0, fmt.Errorf("%w: credentials rejected for %s on %s", ErrAuthFailed, s.creds.Username, s.creds.Database)
	}
	s.log.Info("authenticated", "uid", uid, "database", s.creds.Database)
	return uid, nil
}
