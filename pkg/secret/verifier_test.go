package secret

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifierFromPlainSecret(t *testing.T) {
	v, err := NewVerifier("rahasia-infodoc", "")
	require.NoError(t, err)
	assert.True(t, v.Verify("rahasia-infodoc"))
	assert.False(t, v.Verify("salah"))
	assert.False(t, v.Verify(""))
}

func TestVerifierFromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	v, err := NewVerifier("ignored", string(hash))
	require.NoError(t, err)
	assert.True(t, v.Verify("s3cret"))
	assert.False(t, v.Verify("ignored"))
}

func TestVerifierNotConfiguredRejectsAll(t *testing.T) {
	v, err := NewVerifier("", "")
	assert.True(t, errors.Is(err, ErrNotConfigured))
	require.NotNil(t, v)
	assert.False(t, v.Verify("anything"))

	var nilVerifier *Verifier
	assert.False(t, nilVerifier.Verify("anything"))
}

func TestVerifierRejectsMalformedHash(t *testing.T) {
	v, err := NewVerifier("", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.False(t, v.Verify("not-a-bcrypt-hash"))
}
