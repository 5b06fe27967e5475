package core

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// AuthService defines authentication behaviour.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// DirectoryAuthService logs users in against the directory and issues credentials.
type DirectoryAuthService struct {
	directory *UserDirectory
	tokens    *TokenService
}

func NewDirectoryAuthService(directory *UserDirectory, tokens *TokenService) *DirectoryAuthService {
	return &DirectoryAuthService{directory: directory, tokens: tokens}
}

// Login returns a signed credential for valid credentials. Unknown users and
// wrong passwords both yield ErrInvalidCredentials and an empty token.
func (s *DirectoryAuthService) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := s.directory.Resolve(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUnknownUser) {
			log.Printf("login lookup user=%s: %v", username, err)
		}
		return "", ErrInvalidCredentials
	}

	if !u.VerifyPassword(password) {
		return "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		log.Printf("login issue token user=%s: %v", username, err)
		return "", ErrInvalidCredentials
	}
	return token, nil
}
