package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apkdebug/internal/axml"
	"apkdebug/internal/identity"
)

func buildTestApk(t *testing.T, manifest []byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	mw, err := zw.Create("AndroidManifest.xml")
	require.NoError(t, err)
	_, err = mw.Write(manifest)
	require.NoError(t, err)

	dw, err := zw.Create("classes.dex")
	require.NoError(t, err)
	_, err = dw.Write([]byte("dex bytes"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id
}

func TestRunPatchesAndSignsNonDebuggableManifest(t *testing.T) {
	falseVal := false
	manifest := axml.BuildManifestFixture("com.example.app", &falseVal)
	input := buildTestApk(t, manifest)

	result, err := Run(context.Background(), Input{Data: input, Identity: testIdentity(t)})
	require.NoError(t, err)

	assert.Equal(t, StateEmitted, result.State)
	assert.False(t, result.WasBundle)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, "in-place", result.PatchResult.Strategy)
	assert.Equal(t, "com.example.app", result.Facts.Package)
	assert.NotEmpty(t, result.Output)
	assert.NotEmpty(t, result.Logs)

	out, err := archiveRead(result.Output, "AndroidManifest.xml")
	require.NoError(t, err)
	doc, err := axml.Parse(out)
	require.NoError(t, err)
	facts, err := doc.Facts()
	require.NoError(t, err)
	assert.True(t, facts.IsDebuggable)

	_, err = archiveRead(result.Output, "META-INF/MANIFEST.MF")
	assert.NoError(t, err)
	_, err = archiveRead(result.Output, "META-INF/CERT.SF")
	assert.NoError(t, err)
	_, err = archiveRead(result.Output, "META-INF/CERT.RSA")
	assert.NoError(t, err)
}

func TestRunStructuralPatchWhenAttributeAbsent(t *testing.T) {
	manifest := axml.BuildManifestFixture("com.example.app", nil)
	input := buildTestApk(t, manifest)

	result, err := Run(context.Background(), Input{Data: input, Identity: testIdentity(t)})
	require.NoError(t, err)
	assert.Equal(t, "structural", result.PatchResult.Strategy)
}

func TestRunSkipsPatchWhenAlreadyDebuggable(t *testing.T) {
	trueVal := true
	manifest := axml.BuildManifestFixture("com.example.app", &trueVal)
	input := buildTestApk(t, manifest)

	result, err := Run(context.Background(), Input{Data: input, Identity: testIdentity(t)})
	require.NoError(t, err)
	assert.True(t, result.Facts.IsDebuggable)
	assert.Equal(t, axml.PatchResult{}, result.PatchResult)
}

func TestRunRejectsMissingIdentity(t *testing.T) {
	_, err := Run(context.Background(), Input{Data: []byte("not a zip")})
	require.Error(t, err)
}

func TestRunCancelledContext(t *testing.T) {
	falseVal := false
	manifest := axml.BuildManifestFixture("com.example.app", &falseVal)
	input := buildTestApk(t, manifest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Input{Data: input, Identity: testIdentity(t)})
	require.Error(t, err)
}

func archiveRead(buf []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			out := &bytes.Buffer{}
			if _, err := out.ReadFrom(rc); err != nil {
				return nil, err
			}
			return out.Bytes(), nil
		}
	}
	return nil, zip.ErrFormat
}
