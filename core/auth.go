package core

import (
	"errors"
	"slices"
	"strings"
)

// AdminCapability is the capability label that grants system administration.
const AdminCapability = "system_settings"

// DefaultPermissions is the capability list given to bootstrap accounts that
// do not configure their own.
const DefaultPermissions = "media_library,resource_search,explore,site_management,subscription_management,download_management,media_organize,services," + AdminCapability

// Source tells where a User was resolved from.
type Source string

const (
	SourceBootstrap Source = "bootstrap"
	SourcePersisted Source = "persisted"
)

// presentation fields are fixed by origin, never by the stored record.
var presentationBySource = map[Source]struct{ search, level int }{
	SourceBootstrap: {search: 1, level: 99},
	SourcePersisted: {search: 1, level: 99},
}

// User represents an authenticated principal returned to handlers.
// It is built at resolution time and never stored as-is.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Permissions  []string `json:"permissions"`
	Search       int      `json:"search"`
	Level        int      `json:"level"`
	Source       Source   `json:"source"`
}

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, mis-signed and expired credentials.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnknownUser is returned when neither bootstrap nor store knows the name.
	ErrUnknownUser = errors.New("unknown user")
	// ErrDirectoryWrite is returned when the persisted store rejects a mutation.
	ErrDirectoryWrite = errors.New("directory write failed")
	// ErrBootstrapAccount is returned when a mutation targets a bootstrap account.
	ErrBootstrapAccount = errors.New("bootstrap accounts are immutable")
)

func newUser(id, name, hash, permissions string, src Source) *User {
	p := presentationBySource[src]
	return &User{
		ID:           id,
		Username:     name,
		PasswordHash: hash,
		Permissions:  ParsePermissions(permissions),
		Search:       p.search,
		Level:        p.level,
		Source:       src,
	}
}

// IsAdmin reports whether the user holds AdminCapability.
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Permissions, AdminCapability)
}

// Can reports whether the user holds the given capability label.
func (u *User) Can(capability string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Permissions, strings.TrimSpace(capability))
}

// Menus returns the top-level menu labels the user may see, in order.
func (u *User) Menus() []string {
	if u == nil {
		return nil
	}
	return slices.Clone(u.Permissions)
}

// VerifyPassword checks plaintext against the user's stored hash.
func (u *User) VerifyPassword(plaintext string) bool {
	if u == nil {
		return false
	}
	return VerifyPassword(u.PasswordHash, plaintext)
}

// ParsePermissions turns the comma-delimited transport form into an ordered
// set of labels. Empty input yields no capabilities.
func ParsePermissions(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		t := strings.TrimSpace(v)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FormatPermissions is the inverse of ParsePermissions.
func FormatPermissions(labels []string) string {
	return strings.Join(ParsePermissions(strings.Join(labels, ",")), ",")
}
