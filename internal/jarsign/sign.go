package jarsign

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"path"
	"sort"
	"strings"
	"sync"

	"go.mozilla.org/pkcs7"
	"golang.org/x/exp/errors/fmt"

	"apkdebug/internal/apkerr"
	"apkdebug/internal/archive"
	"apkdebug/internal/identity"
)

// IsSignatureArtifact reports whether name is one of the special JAR
// v1 signing paths that must be excluded from digesting and replaced
// wholesale on every re-sign. The check is ASCII-case-insensitive,
// since toolchains other than this one's own output are not
// guaranteed to use any particular casing for these paths.
func IsSignatureArtifact(name string) bool {
	upper := strings.ToUpper(name)
	if upper == strings.ToUpper(PathManifest) {
		return true
	}
	if strings.HasPrefix(name, "META-INF/") &&
		(strings.Contains(upper, "CERT") || strings.Contains(upper, "SIGN")) {
		return true
	}
	match := func(pattern string) bool {
		m, err := path.Match(pattern, upper)
		return err == nil && m
	}
	return match("META-INF/*.SF") ||
		match("META-INF/*.RSA") ||
		match("META-INF/*.DSA") ||
		match("META-INF/*.EC") ||
		match("META-INF/SIG-*")
}

// EntryDigests computes the SHA-256 digest of every non-directory,
// non-signature entry in a, bounded to concurrency workers running at
// once. The returned map is keyed by entry name; callers that need a
// deterministic ordering should sort the keys themselves, since the
// concurrency here makes completion order nondeterministic.
func EntryDigests(a *archive.Archive, concurrency int) (map[string][]byte, error) {
	entries := a.Enumerate()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || IsSignatureArtifact(e.Name) {
			continue
		}
		names = append(names, e.Name)
	}

	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	digests := make(map[string][]byte, len(names))
	var firstErr error

	for _, name := range names {
		name := name
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := a.Read(name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			sum := sha256.Sum256(data)
			digests[name] = sum[:]
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return digests, nil
}

// BuildManifest merges freshly computed digests into the existing
// manifest's main-section attributes, replacing any stale
// SHA-256-Digest line per entry.
func BuildManifest(existing Manifest, digests map[string][]byte) Manifest {
	m := Manifest{"": existing[""]}
	if len(m[""]) == 0 {
		m[""] = Attributes{
			"Manifest-Version: 1.0",
			"Created-By: 1.0 (apkdebug)",
		}
	}
	for name, sum := range digests {
		m[name] = append(existing[name].Without(digestAttrKey),
			digestAttrKey+": "+base64.StdEncoding.EncodeToString(sum))
	}
	return m
}

// BuildSignatureFile serializes META-INF/CERT.SF: a header digesting
// the whole manifest, followed by one per-entry digest over that
// entry's own manifest section (including its trailing blank line).
func BuildSignatureFile(manifest Manifest) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString("Signature-Version: 1.0\r\n")

	hasher := sha256.New()
	if _, err := manifest.WriteTo(hasher); err != nil {
		return nil, err
	}
	buf.WriteString("SHA-256-Digest-Manifest: " + base64.StdEncoding.EncodeToString(hasher.Sum(nil)) + "\r\n")
	buf.WriteString("Created-By: 1.0 (apkdebug)\r\n\r\n")

	names := make([]string, 0, len(manifest))
	for name := range manifest {
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entryHasher := sha256.New()
		if _, err := manifest.WriteEntry(entryHasher, name); err != nil {
			return nil, err
		}
		entryHasher.Write([]byte("\r\n"))
		buf.WriteString("Name: " + name + "\r\n")
		buf.WriteString("SHA-256-Digest: " + base64.StdEncoding.EncodeToString(entryHasher.Sum(nil)) + "\r\n\r\n")
	}
	return buf.Bytes(), nil
}

// Sign re-signs a in place: it strips any existing signature
// artifacts, recomputes per-entry digests (parallel, bounded by
// concurrency), rebuilds MANIFEST.MF and CERT.SF, and writes a
// detached PKCS#7 CERT.RSA signature over CERT.SF using id.
func Sign(a *archive.Archive, id *identity.Identity, concurrency int) error {
	var existing Manifest
	if raw, err := a.Read(PathManifest); err == nil {
		m, perr := ParseManifest(bytes.NewReader(raw))
		if perr != nil {
			return fmt.Errorf("parsing existing manifest: %w", perr)
		}
		existing = m
	} else {
		existing = Manifest{}
	}

	a.RemoveMatching(IsSignatureArtifact)

	digests, err := EntryDigests(a, concurrency)
	if err != nil {
		return fmt.Errorf("digesting archive entries: %w: %s", apkerr.SignFailed, err)
	}
	manifest := BuildManifest(existing, digests)

	manifestBuf := &bytes.Buffer{}
	if _, err := manifest.WriteTo(manifestBuf); err != nil {
		return fmt.Errorf("serializing manifest: %w: %s", apkerr.SignFailed, err)
	}
	a.Put(PathManifest, manifestBuf.Bytes())

	sigFile, err := BuildSignatureFile(manifest)
	if err != nil {
		return fmt.Errorf("building signature file: %w: %s", apkerr.SignFailed, err)
	}
	a.Put(PathCertSF, sigFile)

	signed, err := signDetached(sigFile, id.Cert, id.Key)
	if err != nil {
		return fmt.Errorf("signing CERT.SF: %w: %s", apkerr.SignFailed, err)
	}
	a.Put(PathCertRSA, signed)

	return nil
}

func signDetached(data []byte, cert *x509.Certificate, key crypto.PrivateKey) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(data)
	if err != nil {
		return nil, err
	}
	if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, err
	}
	sd.Detach()
	return sd.Finish()
}
