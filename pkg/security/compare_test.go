package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("secret-value", "secret-value"))
	assert.False(t, SecureCompare("secret-value", "secret-valuf"))
	assert.False(t, SecureCompare("short", "longer-value"))
	assert.True(t, SecureCompare("", ""))
}

func TestSecureCompareBytes(t *testing.T) {
	assert.True(t, SecureCompareBytes([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, SecureCompareBytes([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.False(t, SecureCompareBytes([]byte{1, 2}, []byte{1, 2, 3}))
}
