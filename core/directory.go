package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// BootstrapAccount is an account defined by process configuration. It is
// always resolvable and cannot be removed through the directory.
type BootstrapAccount struct {
	Name         string
	PasswordHash string
	Permissions  string // comma-delimited
}

// UserDirectory merges bootstrap accounts with the persisted store.
// Bootstrap accounts win on name collisions. Nothing is cached, so store
// mutations are visible on the next call.
type UserDirectory struct {
	bootstrap []BootstrapAccount
	store     UserStore
}

// NewUserDirectory builds the directory once at startup. A nil store means
// only bootstrap accounts are known.
func NewUserDirectory(bootstrap []BootstrapAccount, store UserStore) *UserDirectory {
	accounts := make([]BootstrapAccount, 0, len(bootstrap))
	for _, a := range bootstrap {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			continue
		}
		accounts = append(accounts, a)
	}
	return &UserDirectory{bootstrap: accounts, store: store}
}

func (d *UserDirectory) bootstrapUser(i int) *User {
	a := d.bootstrap[i]
	return newUser(strconv.Itoa(-i), a.Name, a.PasswordHash, a.Permissions, SourceBootstrap)
}

func (d *UserDirectory) bootstrapIndex(name string) int {
	for i, a := range d.bootstrap {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// IsBootstrap reports whether name belongs to a bootstrap account.
func (d *UserDirectory) IsBootstrap(name string) bool {
	return d.bootstrapIndex(name) >= 0
}

// Resolve returns the user for username, or ErrUnknownUser.
func (d *UserDirectory) Resolve(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, ErrUnknownUser
	}
	if i := d.bootstrapIndex(username); i >= 0 {
		return d.bootstrapUser(i), nil
	}
	if d.store == nil {
		return nil, ErrUnknownUser
	}
	records, err := d.store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read user store: %w", err)
	}
	for _, r := range records {
		if r.Name == username {
			return r.toUser(), nil
		}
	}
	return nil, ErrUnknownUser
}

// List returns bootstrap accounts followed by persisted ones in store order.
// Persisted rows shadowed by a bootstrap name are skipped.
func (d *UserDirectory) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(d.bootstrap))
	for i := range d.bootstrap {
		out = append(out, *d.bootstrapUser(i))
	}
	if d.store == nil {
		return out, nil
	}
	records, err := d.store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read user store: %w", err)
	}
	for _, r := range records {
		if d.IsBootstrap(r.Name) {
			continue
		}
		out = append(out, *r.toUser())
	}
	return out, nil
}

// Add stores a new persisted user. A plaintext password is hashed first; a
// value already in a supported hash format is stored unchanged. Store faults
// are logged and reported as ErrDirectoryWrite.
func (d *UserDirectory) Add(ctx context.Context, username, password, permissions string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrDirectoryWrite)
	}
	if d.IsBootstrap(username) {
		return ErrBootstrapAccount
	}
	if d.store == nil {
		return fmt.Errorf("%w: no user store configured", ErrDirectoryWrite)
	}
	hash := password
	if !IsPasswordHash(password) {
		var err error
		if hash, err = HashPassword(password); err != nil {
			log.Printf("directory add user=%s: hash password: %v", username, err)
			return fmt.Errorf("%w: %s", ErrDirectoryWrite, username)
		}
	}
	if err := d.store.InsertUser(ctx, username, hash, FormatPermissions(ParsePermissions(permissions))); err != nil {
		log.Printf("directory add user=%s failed: %v", username, err)
		if errors.Is(err, ErrDuplicateUser) {
			return fmt.Errorf("%w: %s already exists", ErrDirectoryWrite, username)
		}
		return fmt.Errorf("%w: %s", ErrDirectoryWrite, username)
	}
	log.Printf("directory added user=%s", username)
	return nil
}

// Remove deletes a persisted user. Bootstrap names fail without touching the store.
func (d *UserDirectory) Remove(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if d.IsBootstrap(username) {
		return ErrBootstrapAccount
	}
	if username == "" || d.store == nil {
		return fmt.Errorf("%w: %s", ErrDirectoryWrite, username)
	}
	if err := d.store.DeleteUser(ctx, username); err != nil {
		log.Printf("directory remove user=%s failed: %v", username, err)
		return fmt.Errorf("%w: %s", ErrDirectoryWrite, username)
	}
	log.Printf("directory removed user=%s", username)
	return nil
}
