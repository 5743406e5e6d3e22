package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewName(t *testing.T) {
	tests := map[string]string{
		"/":                         "home",
		"":                          "home",
		"/dashboard":                "dashboard",
		"/SecureNeat/dashboard":     "SecureNeat",
		"/dashboard-pages/overview": "dashboard-pages",
		"/admin/users/42":           "admin",
	}
	for path, want := range tests {
		assert.Equal(t, want, viewName(path), path)
	}
}
