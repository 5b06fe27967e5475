package core

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord is the raw persisted row; it is wrapped into User on read.
type UserRecord struct {
	ID           int64
	Name         string
	PasswordHash string
	Permissions  string
}

// UserStore is the persisted side of the directory. Implementations must be
// safe for concurrent reads and serialize their own writes.
type UserStore interface {
	GetUsers(ctx context.Context) ([]UserRecord, error)
	InsertUser(ctx context.Context, name, passwordHash, permissions string) error
	DeleteUser(ctx context.Context, name string) error
}

var (
	// ErrDuplicateUser is returned by stores when the name is taken.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrUserNotFound is returned by stores when deleting a missing name.
	ErrUserNotFound = errors.New("user not found")
)

func (r UserRecord) toUser() *User {
	return newUser(strconv.FormatInt(r.ID, 10), r.Name, r.PasswordHash, r.Permissions, SourcePersisted)
}

// PgUserStore implements UserStore using pgxpool.
type PgUserStore struct {
	db *pgxpool.Pool
}

func NewPgUserStore(db *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{db: db}
}

func (r *PgUserStore) GetUsers(ctx context.Context) ([]UserRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, password_hash, permissions FROM console_users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserRecord
	for rows.Next() {
		var u UserRecord
		if err := rows.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Permissions); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *PgUserStore) InsertUser(ctx context.Context, name, passwordHash, permissions string) error {
	const q = `INSERT INTO console_users (name, password_hash, permissions) VALUES ($1,$2,$3)`
	if _, err := r.db.Exec(ctx, q, name, passwordHash, permissions); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (r *PgUserStore) DeleteUser(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM console_users WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
