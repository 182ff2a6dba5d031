// Package session manages opaque session tokens for the single operator
// account. Sessions live only in process memory; a restart requires re-login.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	// RotationAfter is the idle time after which an authenticated request
	// gets a replacement token.
	RotationAfter = 30 * time.Minute
	// ExpireAfter is the absolute idle expiry; sessions older than this are
	// rejected and swept.
	ExpireAfter = 8 * time.Hour
	// SweepInterval is how often the background sweep runs.
	SweepInterval = time.Hour

	tokenBytes = 32
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("invalid or expired session")
)

// Session is one active login.
type Session struct {
	Username   string
	LastActive time.Time
}

// Store holds active sessions for a single fixed credential pair. The clock
// and random source are injected so tests can drive rotation and expiry
// deterministically.
type Store struct {
	username string
	password string
	now      func() time.Time
	rand     io.Reader

	mu       sync.Mutex
	sessions map[string]Session
}

// NewStore creates a session store. A nil now defaults to time.Now and a nil
// random source to crypto/rand.
func NewStore(username, password string, now func() time.Time, random io.Reader) *Store {
	if now == nil {
		now = time.Now
	}
	if random == nil {
		random = rand.Reader
	}
	return &Store{
		username: username,
		password: password,
		now:      now,
		rand:     random,
		sessions: make(map[string]Session),
	}
}

// Login checks the credential pair and mints a new session token. The token
// expires after ExpireAfter of inactivity.
func (s *Store) Login(username, password string) (token string, expiresAt time.Time, err error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, err = s.newToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	s.mu.Lock()
	s.sessions[token] = Session{Username: s.username, LastActive: now}
	s.mu.Unlock()
	return token, now.Add(ExpireAfter), nil
}

// Authenticate authorizes a token. When the session has been idle past
// RotationAfter it is replaced: the old token dies, newToken carries the
// replacement to relay to the client, and the current request is still
// authorized. Within the rotation window the idle clock just resets.
func (s *Store) Authenticate(token string) (username, newToken string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", "", ErrUnauthenticated
	}

	now := s.now()
	idle := now.Sub(sess.LastActive)
	if idle > ExpireAfter {
		delete(s.sessions, token)
		return "", "", ErrUnauthenticated
	}

	if idle > RotationAfter {
		replacement, err := s.newToken()
		if err != nil {
			return "", "", err
		}
		s.sessions[replacement] = Session{Username: sess.Username, LastActive: now}
		delete(s.sessions, token)
		return sess.Username, replacement, nil
	}

	sess.LastActive = now
	s.sessions[token] = sess
	return sess.Username, "", nil
}

// Logout deletes the session. Unknown tokens are a no-op.
func (s *Store) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Sweep removes sessions idle past the absolute expiry and returns how many
// were dropped.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if now.Sub(sess.LastActive) > ExpireAfter {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper runs Sweep every SweepInterval until ctx is done. Each pass
// only deletes expired entries, so it is safe alongside request handling.
func (s *Store) StartSweeper(ctx context.Context, onSweep func(removed int)) {
	go func() {
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := s.Sweep()
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}

func (s *Store) newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
