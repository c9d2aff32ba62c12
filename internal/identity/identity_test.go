package identity

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesValidSelfSignedCert(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	require.NotNil(t, id.Cert)
	require.NotNil(t, id.Key)

	assert.Equal(t, 2048, id.Key.N.BitLen())
	assert.Equal(t, "APK Debug Key", id.Cert.Subject.CommonName)
	assert.Equal(t, id.Cert.Subject.CommonName, id.Cert.Issuer.CommonName)
	assert.Equal(t, x509.SHA256WithRSA, id.Cert.SignatureAlgorithm)
	assert.False(t, id.Cert.IsCA)
	assert.True(t, id.Cert.NotAfter.Sub(id.Cert.NotBefore) > 9*365*24*time.Hour)

	// The cert is not a CA and carries no CertSign usage bit, matching a
	// real debug keystore identity, so verification is by direct
	// signature check rather than CheckSignatureFrom's CA constraints.
	err = id.Cert.CheckSignature(id.Cert.SignatureAlgorithm, id.Cert.RawTBSCertificate, id.Cert.Signature)
	assert.NoError(t, err)
}

func TestWriteCertAndKeyPEM(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	certPEM := id.WriteCertPEM()
	assert.Contains(t, string(certPEM), "BEGIN CERTIFICATE")

	keyPEM, err := id.WriteKeyPKCS8PEM()
	require.NoError(t, err)
	assert.Contains(t, string(keyPEM), "BEGIN PRIVATE KEY")
}

func TestLoadRoundTripsGeneratedIdentity(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "debug.x509.pem")
	keyPath := filepath.Join(dir, "debug.pk8")

	require.NoError(t, os.WriteFile(certPath, id.WriteCertPEM(), 0o644))
	keyPEM, err := id.WriteKeyPKCS8PEM()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))

	loaded, err := Load(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, id.Cert.Subject.CommonName, loaded.Cert.Subject.CommonName)
	assert.Equal(t, id.Key.N, loaded.Key.N)
}
