package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"auth failed", common.ErrAuthFailed, ExitAuthFailed},
		{"locked", common.ErrLocked, ExitAuthFailed},
		{"not found", common.ErrNotFound, ExitNotFound},
		{"corrupt backup", common.ErrCorruptBackup, ExitCorruptBackup},
		{"version too new", common.ErrVersionTooNew, ExitVersionTooNew},
		{"wrapped not found", fmt.Errorf("entry x: %w", common.ErrNotFound), ExitNotFound},
		{"generic", errors.New("boom"), ExitFailure},
		{"invalid config", common.ErrInvalidConfig, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestParseSecretData(t *testing.T) {
	data, err := parseSecretData("api_key", `{"key":"k1","scopes":["read"]}`)
	assert.NoError(t, err)
	assert.Equal(t, "api_key", string(data.SecretType()))

	_, err = parseSecretData("hologram", `{}`)
	assert.ErrorIs(t, err, common.ErrUnknownVariant)
}

func TestParseExpiry(t *testing.T) {
	got, err := parseExpiry("")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseExpiry("2027-01-01T00:00:00Z")
	assert.NoError(t, err)
	assert.NotNil(t, got)

	_, err = parseExpiry("tomorrow")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
