package jarsign

import (
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apkdebug/internal/archive"
	"apkdebug/internal/identity"
)

func TestIsSignatureArtifact(t *testing.T) {
	assert.True(t, IsSignatureArtifact("META-INF/MANIFEST.MF"))
	assert.True(t, IsSignatureArtifact("META-INF/CERT.SF"))
	assert.True(t, IsSignatureArtifact("META-INF/CERT.RSA"))
	assert.True(t, IsSignatureArtifact("META-INF/SIG-FOO"))
	assert.False(t, IsSignatureArtifact("META-INF/services/foo"))
	assert.False(t, IsSignatureArtifact("classes.dex"))

	// Case-folding: a differently-cased producer's artifacts still count.
	assert.True(t, IsSignatureArtifact("META-INF/manifest.mf"))
	assert.True(t, IsSignatureArtifact("META-INF/cert.rsa"))
	assert.True(t, IsSignatureArtifact("META-INF/sig-foo"))

	// CERT/SIGN substring match, independent of the extension globs.
	assert.True(t, IsSignatureArtifact("META-INF/ORIGSIGN.DSA"))
	assert.True(t, IsSignatureArtifact("META-INF/OLDCERT.txt"))
}

func TestManifestRoundTrip(t *testing.T) {
	raw := "Manifest-Version: 1.0\r\n" +
		"Created-By: apkdebug\r\n" +
		"\r\n" +
		"Name: classes.dex\r\n" +
		"SHA-256-Digest: AAAA\r\n" +
		"\r\n"

	m, err := ParseManifest(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, Attributes{"SHA-256-Digest: AAAA"}, m["classes.dex"])

	var out strings.Builder
	_, err = m.WriteTo(&out)
	require.NoError(t, err)
	if d := diff.Diff(raw, out.String()); d != "" {
		t.Errorf("manifest did not round-trip:\n%s", d)
	}
}

func TestEntryDigestsSkipsSignatureArtifacts(t *testing.T) {
	a := archive.New()
	a.Put("classes.dex", []byte("dex bytes"))
	a.Put("META-INF/MANIFEST.MF", []byte("stale"))

	digests, err := EntryDigests(a, 4)
	require.NoError(t, err)
	assert.Contains(t, digests, "classes.dex")
	assert.NotContains(t, digests, "META-INF/MANIFEST.MF")
}

func TestSignProducesAllThreeArtifacts(t *testing.T) {
	a := archive.New()
	a.Put("classes.dex", []byte("dex bytes"))
	a.Put("resources.arsc", []byte("resource bytes"))

	id, err := identity.Generate()
	require.NoError(t, err)

	err = Sign(a, id, 2)
	require.NoError(t, err)

	assert.True(t, a.Has(PathManifest))
	assert.True(t, a.Has(PathCertSF))
	assert.True(t, a.Has(PathCertRSA))

	manifestBytes, err := a.Read(PathManifest)
	require.NoError(t, err)
	m, err := ParseManifest(strings.NewReader(string(manifestBytes)))
	require.NoError(t, err)
	assert.NotEmpty(t, m["classes.dex"])
	assert.NotEmpty(t, m["resources.arsc"])
}
