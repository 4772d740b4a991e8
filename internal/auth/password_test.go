package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2"))
	assert.Error(t, ComparePassword(hash, "hunter3"))
}

func TestHashPasswordDefaultCost(t *testing.T) {
	hash, err := HashPassword("hunter2", 0)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2"))
}
