package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// SetupLogging tees the standard logger and gin's writers to stdout and
// <cfg.LogDir>/<role>.log. Every line is prefixed with the process role so
// api and userctl entries can share one directory. Close the returned
// io.Closer on shutdown.
func SetupLogging(cfg Config, role string) (io.Closer, error) {
	dir := firstNonEmpty(cfg.LogDir, "/var/log/console")
	role = firstNonEmpty(role, "console")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, role+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	mw := io.MultiWriter(os.Stdout, f)
	log.SetOutput(mw)
	log.SetPrefix("[" + role + "] ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
	gin.DefaultWriter = mw
	gin.DefaultErrorWriter = mw

	return f, nil
}
