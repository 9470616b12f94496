package vault

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() *cryptox.Key {
	return cryptox.NewKey(common.GenerateRandByteArray(cryptox.KeySize))
}

func TestSession_LockedByDefault(t *testing.T) {
	s := NewSession(0)

	assert.False(t, s.IsUnlocked())
	err := s.WithKey(func(*cryptox.Key) error { return nil })
	assert.ErrorIs(t, err, common.ErrLocked)
}

func TestSession_UnlockLock(t *testing.T) {
	s := NewSession(0)
	s.Unlock(testKey())

	assert.True(t, s.IsUnlocked())

	called := false
	err := s.WithKey(func(key *cryptox.Key) error {
		called = true
		require.NotNil(t, key)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	s.Lock()
	assert.False(t, s.IsUnlocked())
	err = s.WithKey(func(*cryptox.Key) error { return nil })
	assert.ErrorIs(t, err, common.ErrLocked)
}

func TestSession_LockIsIdempotent(t *testing.T) {
	s := NewSession(0)
	s.Unlock(testKey())
	s.Lock()
	s.Lock()
	assert.False(t, s.IsUnlocked())
}

func TestSession_IdleTimeout(t *testing.T) {
	s := NewSession(30 * time.Millisecond)
	s.Unlock(testKey())
	require.True(t, s.IsUnlocked())

	assert.Eventually(t, func() bool { return !s.IsUnlocked() },
		time.Second, 5*time.Millisecond)
}

func TestSession_UseRearmsIdleTimer(t *testing.T) {
	s := NewSession(60 * time.Millisecond)
	s.Unlock(testKey())

	// Keep touching the session for longer than the idle timeout.
	for i := 0; i < 5; i++ {
		time.Sleep(25 * time.Millisecond)
		err := s.WithKey(func(*cryptox.Key) error { return nil })
		require.NoError(t, err, "session must stay unlocked while in use")
	}

	assert.Eventually(t, func() bool { return !s.IsUnlocked() },
		time.Second, 5*time.Millisecond)
}

func TestSession_ReUnlockReplacesKey(t *testing.T) {
	s := NewSession(0)
	s.Unlock(testKey())
	s.Unlock(testKey())
	assert.True(t, s.IsUnlocked())
}
