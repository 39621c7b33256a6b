package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Minute)

	token, expiresAt, err := signer.Generate("cert-1", "certificates/cert-1.pdf")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	artifactID, relPath, parsedExp, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "cert-1", artifactID)
	require.Equal(t, "certificates/cert-1.pdf", relPath)
	require.Equal(t, expiresAt.Unix(), parsedExp.Unix())
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Minute)
	token, _, err := signer.Generate("cert-1", "certificates/cert-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	require.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Minute)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLDefaultTTL(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", 0)
	_, expiresAt, err := signer.Generate("cert-1", "certificates/cert-1.pdf")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now().Add(29*time.Minute)))
}

func TestSignedURLExpiry(t *testing.T) {
	// Built directly so the TTL stays negative; the constructor coerces
	// non-positive TTLs to the default.
	signer := &SignedURLSigner{secret: []byte("test-secret"), ttl: -time.Minute}
	token, _, err := signer.Generate("cert-1", "certificates/cert-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	_, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "certificates/cert-1.pdf", relPath)
}
