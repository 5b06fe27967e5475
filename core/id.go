package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewInstanceID identifies one console process by hostname, pid and a random suffix.
func NewInstanceID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "console"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), suffix)
}
