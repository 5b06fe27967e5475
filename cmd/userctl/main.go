package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"console-auth/core"
)

const usage = `usage:
  userctl list
  userctl add <username> <password|hash> [permissions]
  userctl remove <username>`

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the exit code so deferred cleanup runs before os.Exit.
func realMain(args []string) int {
	_ = godotenv.Load()
	cfg := core.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	logCloser, err := core.SetupLogging(cfg, "userctl")
	if err != nil {
		log.Printf("failed to setup logging: %v", err)
		return 1
	}
	defer logCloser.Close()

	store, closeStore, err := core.OpenUserStore(ctx, cfg)
	if err != nil {
		log.Printf("failed to open user store: %v", err)
		return 1
	}
	defer closeStore()

	bootstrap, err := cfg.BootstrapAccounts()
	if err != nil {
		log.Printf("failed to load bootstrap accounts: %v", err)
		return 1
	}
	directory := core.NewUserDirectory(bootstrap, store)

	operator := "unknown"
	if u, _ := user.Current(); u != nil && u.Username != "" {
		operator = u.Username
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := run(ctx, os.Stdout, directory, args); err != nil {
		log.Printf("userctl %s by %s failed: %v", args[0], operator, err)
		return 1
	}
	log.Printf("userctl %s by %s done", args[0], operator)
	return 0
}

func run(ctx context.Context, out io.Writer, directory *core.UserDirectory, args []string) error {
	switch args[0] {
	case "list":
		users, err := directory.List(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(out, "%-20s %-10s admin=%-5t %s\n", u.Username, u.Source, u.IsAdmin(), strings.Join(u.Permissions, ","))
		}
		return nil
	case "add":
		if len(args) < 3 {
			return errors.New(usage)
		}
		perms := ""
		if len(args) > 3 {
			perms = args[3]
		}
		return directory.Add(ctx, args[1], args[2], perms)
	case "remove":
		if len(args) < 2 {
			return errors.New(usage)
		}
		return directory.Remove(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
