package core

import (
	"context"
	"fmt"
)

// OpenUserStore connects the persisted store selected by cfg.UserStore. The
// returned func releases the connection.
func OpenUserStore(ctx context.Context, cfg Config) (UserStore, func(), error) {
	switch cfg.UserStore {
	case "postgres":
		db, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return NewPgUserStore(db), db.Close, nil
	case "redis":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisUserStore(client), func() { _ = client.Close() }, nil
	case "none", "":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown USER_STORE %q", cfg.UserStore)
	}
}
