package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"

	"console-auth/core"
)

func main() {
	_ = godotenv.Load()
	cfg := core.Load()
	ctx := context.Background()
	startedAt := time.Now()
	instanceID := core.NewInstanceID()

	logCloser, err := core.SetupLogging(cfg, "api")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	store, closeStore, err := core.OpenUserStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open user store: %v", err)
	}
	defer closeStore()

	bootstrap, err := cfg.BootstrapAccounts()
	if err != nil {
		log.Fatalf("failed to load bootstrap accounts: %v", err)
	}
	if len(bootstrap) == 0 {
		log.Printf("no bootstrap account configured; only persisted users can log in")
	}
	directory := core.NewUserDirectory(bootstrap, store)

	tokens, err := core.NewTokenService([]byte(cfg.SecretKey), cfg.TokenWindow)
	if err != nil {
		log.Fatalf("failed to create token service: %v", err)
	}
	guard := core.NewAccessGuard(tokens, directory, core.WithLoginPath(cfg.LoginPath))

	// Gorilla cookie store for flash messages and CSRF tokens.
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionKey))

	router := core.NewRouter(core.Console{
		Config:    cfg,
		Sessions:  sessionStore,
		Auth:      core.NewDirectoryAuthService(directory, tokens),
		Guard:     guard,
		Directory: directory,

		InstanceID: instanceID,
		StartedAt:  startedAt,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting console %s on %s store=%s bootstrap_accounts=%d", instanceID, addr, cfg.UserStore, len(bootstrap))
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
