package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueVerify(t *testing.T) {
	ts := newTestTokens(t)
	tok, err := ts.Issue("admin")
	require.NoError(t, err)

	sub, err := ts.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)

	_, err = ts.Issue("")
	assert.Error(t, err)
}

func TestTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(nil, time.Hour)
	assert.Error(t, err)

	ts, err := NewTokenService([]byte("k"), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenWindow, ts.Window())
}

func TestTokenExpiresAfterWindow(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	ts := newTestTokens(t, WithClock(clock))
	tok, err := ts.Issue("bob")
	require.NoError(t, err)

	advance(59 * time.Minute)
	sub, err := ts.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "bob", sub)

	advance(2 * time.Minute)
	_, err = ts.Verify(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
}

func TestTokenValidForWholeWindowWithSubSecondIssue(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 900_000_000, time.UTC)
	now := issued
	ts := newTestTokens(t, WithClock(func() time.Time { return now }))

	tok, err := ts.Issue("admin")
	require.NoError(t, err)

	now = issued.Add(59*time.Minute + 59*time.Second + 500*time.Millisecond)
	sub, err := ts.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)

	now = issued.Add(time.Hour + 100*time.Millisecond)
	_, err = ts.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCeilSecond(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base, ceilSecond(base))
	assert.Equal(t, base.Add(time.Second), ceilSecond(base.Add(time.Nanosecond)))
	assert.Equal(t, base.Add(time.Second), ceilSecond(base.Add(999*time.Millisecond)))
}

func TestTokenTamperedAnywhereFails(t *testing.T) {
	ts := newTestTokens(t)
	tok, err := ts.Issue("admin")
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		if tok[i] == '.' {
			continue
		}
		b := []byte(tok)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		_, err := ts.Verify(string(b))
		assert.ErrorIs(t, err, ErrInvalidToken, "mutation at %d accepted", i)
	}
}

func TestTokenRejectsForeignCredentials(t *testing.T) {
	ts := newTestTokens(t)
	other, err := NewTokenService([]byte("another-secret"), time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue("admin")
	require.NoError(t, err)
	_, err = ts.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ts.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret-0123456789"))
	require.NoError(t, err)
	_, err = ts.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "admin"}).SignedString([]byte("test-secret-0123456789"))
	require.NoError(t, err)
	_, err = ts.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	for _, garbage := range []string{"", "abc", "a.b.c", "Bearer x"} {
		_, err = ts.Verify(garbage)
		assert.ErrorIs(t, err, ErrInvalidToken, garbage)
	}
}

func TestTokenConcurrentUse(t *testing.T) {
	ts := newTestTokens(t)
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i%26))
			tok, err := ts.Issue(name)
			if err != nil {
				errs <- err
				return
			}
			sub, err := ts.Verify(tok)
			if err != nil {
				errs <- err
				return
			}
			if sub != name {
				errs <- errors.New("subject mismatch: " + sub + " != " + name)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
