package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeNext(t *testing.T) {
	kept := []string{"/web", "/web/sites?page=2", " /web ", "/api/v1/users/me#top"}
	for _, next := range kept {
		assert.NotEmpty(t, sanitizeNext(next), "%q", next)
	}

	rejected := []string{
		"",
		"web",
		"//evil.example",
		"/\\evil.example",
		"https://evil.example/",
		"/\t/evil.example",
		"/\r\n/evil.example",
		"/\n/evil.example",
		"/web\x00",
		"/web\x7f",
		"\t//evil.example",
	}
	for _, next := range rejected {
		assert.Empty(t, sanitizeNext(next), "%q", next)
	}
}
