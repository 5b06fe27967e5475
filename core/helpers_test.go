package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore is an in-memory UserStore with injectable faults.
type memStore struct {
	mu        sync.Mutex
	records   []UserRecord
	nextID    int64
	reads     int
	writes    int
	getErr    error
	insertErr error
	deleteErr error
}

func (s *memStore) GetUsers(context.Context) ([]UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return append([]UserRecord(nil), s.records...), nil
}

func (s *memStore) InsertUser(_ context.Context, name, hash, perms string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range s.records {
		if r.Name == name {
			return ErrDuplicateUser
		}
	}
	s.nextID++
	s.records = append(s.records, UserRecord{ID: s.nextID, Name: name, PasswordHash: hash, Permissions: perms})
	return nil
}

func (s *memStore) DeleteUser(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i, r := range s.records {
		if r.Name == name {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ErrUserNotFound
}

// cheapHash keeps bcrypt fast in tests.
func cheapHash(t testing.TB, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestTokens(t testing.TB, opts ...TokenOption) *TokenService {
	t.Helper()
	ts, err := NewTokenService([]byte("test-secret-0123456789"), time.Hour, opts...)
	require.NoError(t, err)
	return ts
}
