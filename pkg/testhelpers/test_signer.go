package testhelpers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentrover/rentrover/pkg/auth"
)

const TestIssuer = "rentrover-test"

// NewTestSigner returns a signer backed by a fresh RSA key pair
func NewTestSigner(t *testing.T) *auth.Signer {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	signer, err := auth.NewSigner(privPEM, pubPEM, TestIssuer)
	require.NoError(t, err)
	return signer
}

// MustToken signs a one-hour token for identity
func MustToken(t *testing.T, signer *auth.Signer, identity auth.Identity) string {
	t.Helper()
	token, err := signer.GenerateToken(identity, time.Hour)
	require.NoError(t, err)
	return token
}
