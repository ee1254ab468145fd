package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid simple", "alice", false},
		{"valid with digits", "alice42", false},
		{"valid with underscore", "alice_dev", false},
		{"valid starts with digit", "42alice", false},
		{"valid min length", "abc", false},
		{"valid max length", "abcdefghij0123456789", false},
		{"too short", "ab", true},
		{"too long", "abcdefghij0123456789x", true},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"starts with underscore", "_alice", true},
		{"contains dash", "alice-dev", true},
		{"contains space", "alice dev", true},
		{"contains dot", "alice.dev", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice  "))
	assert.Equal(t, "bob_dev", NormalizeUsername("Bob_Dev"))
}
