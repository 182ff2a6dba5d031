package session

import (
	"errors"
	"testing"
	"time"
)

// fakeClock lets tests drive idle time deterministically.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{current: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	return NewStore("admin", "secret", clock.now, nil), clock
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid credentials", "admin", "secret", nil},
		{"wrong password", "admin", "wrong", ErrInvalidCredentials},
		{"wrong username", "root", "secret", ErrInvalidCredentials},
		{"both empty", "", "", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clock := newTestStore(t)
			token, expiresAt, err := store.Login(tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if len(token) != 64 {
				t.Errorf("token length = %d, want 64 hex chars", len(token))
			}
			for _, c := range token {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("token contains invalid hex char: %c", c)
				}
			}
			if want := clock.current.Add(ExpireAfter); !expiresAt.Equal(want) {
				t.Errorf("expiresAt = %v, want %v", expiresAt, want)
			}
		})
	}
}

func TestLoginTokensAreUnique(t *testing.T) {
	store, _ := newTestStore(t)
	t1, _, _ := store.Login("admin", "secret")
	t2, _, _ := store.Login("admin", "secret")
	if t1 == t2 {
		t.Error("two logins produced the same token")
	}
}

func TestAuthenticateRefreshesIdleClock(t *testing.T) {
	store, clock := newTestStore(t)
	token, _, _ := store.Login("admin", "secret")

	// Keep using the token every 20 minutes; it must stay valid well past
	// the absolute expiry measured from login, since expiry is idle-based.
	for i := 0; i < 30; i++ {
		clock.advance(20 * time.Minute)
		username, newToken, err := store.Authenticate(token)
		if err != nil {
			t.Fatalf("Authenticate() after %d uses: %v", i, err)
		}
		if username != "admin" {
			t.Fatalf("username = %q, want admin", username)
		}
		if newToken != "" {
			t.Fatalf("unexpected rotation within rotation window")
		}
	}
}

func TestAuthenticateRotation(t *testing.T) {
	store, clock := newTestStore(t)
	token, _, _ := store.Login("admin", "secret")

	clock.advance(RotationAfter + time.Minute)
	username, newToken, err := store.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate() past rotation window: %v", err)
	}
	if username != "admin" {
		t.Errorf("username = %q, want admin", username)
	}
	if newToken == "" {
		t.Fatal("expected a replacement token past the rotation window")
	}
	if newToken == token {
		t.Error("replacement token equals the old token")
	}

	// Old token is dead, replacement works.
	if _, _, err := store.Authenticate(token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("old token after rotation: error = %v, want ErrUnauthenticated", err)
	}
	if _, _, err := store.Authenticate(newToken); err != nil {
		t.Errorf("replacement token: %v", err)
	}
}

func TestAuthenticateAbsoluteExpiry(t *testing.T) {
	store, clock := newTestStore(t)
	token, _, _ := store.Login("admin", "secret")

	clock.advance(ExpireAfter + time.Second)
	if _, _, err := store.Authenticate(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired token: error = %v, want ErrUnauthenticated", err)
	}
	if got := store.Count(); got != 0 {
		t.Errorf("expired session not removed, Count() = %d", got)
	}
}

func TestAuthenticateUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)
	if _, _, err := store.Authenticate("deadbeef"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("unknown token: error = %v, want ErrUnauthenticated", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	token, _, _ := store.Login("admin", "secret")

	store.Logout(token)
	if _, _, err := store.Authenticate(token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("token after logout: error = %v, want ErrUnauthenticated", err)
	}
	store.Logout(token) // second logout must not panic or error
	store.Logout("never-existed")
}

func TestSweep(t *testing.T) {
	store, clock := newTestStore(t)

	stale, _, _ := store.Login("admin", "secret")
	clock.advance(ExpireAfter + time.Minute)
	fresh, _, _ := store.Login("admin", "secret")

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("Sweep() removed = %d, want 1", removed)
	}
	if _, _, err := store.Authenticate(stale); !errors.Is(err, ErrUnauthenticated) {
		t.Error("stale session survived sweep")
	}
	if _, _, err := store.Authenticate(fresh); err != nil {
		t.Errorf("fresh session swept: %v", err)
	}
}
