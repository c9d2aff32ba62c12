// Package jarsign implements the JAR v1 signing scheme Android uses
// for debug-signed .apk files: a META-INF/MANIFEST.MF digest manifest,
// a META-INF/CERT.SF signature file hashing the manifest's own
// sections, and a META-INF/CERT.RSA detached PKCS#7 signature over it.
package jarsign

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"golang.org/x/exp/errors/fmt"
)

const (
	PathManifest = "META-INF/MANIFEST.MF"
	PathCertSF   = "META-INF/CERT.SF"
	PathCertRSA  = "META-INF/CERT.RSA"

	digestAttrKey = "SHA-256-Digest"
)

type Manifest map[string]Attributes
type Attributes []string

func (as Attributes) Without(key string) Attributes {
	key = key + ": "
	for i, v := range as {
		if strings.HasPrefix(v, key) {
			return append(as[:i:i], as[i+1:]...)
		}
	}
	return as
}

// ParseManifest reads an existing META-INF/MANIFEST.MF, preserving its
// main-section attributes (e.g. Created-By) across a re-sign.
func ParseManifest(r io.Reader) (Manifest, error) {
	const namePrefix = "Name: "
	m := Manifest{}
	k, v := "", Attributes{}
	scan := bufio.NewScanner(
		io.MultiReader(r, strings.NewReader("\r\n\r\n")))
	for scan.Scan() {
		line := scan.Text()
		switch {
		case line == "":
			if len(v) > 0 {
				m[k] = v
				k, v = "", Attributes{}
			}
		case strings.HasPrefix(line, namePrefix):
			k = line[len(namePrefix):]
		case strings.HasPrefix(line, " "):
			if len(v) == 0 {
				k += line[1:]
			} else {
				v[len(v)-1] += line[1:]
			}
		default:
			v = append(v, line)
		}
	}
	if scan.Err() != nil {
		return nil, fmt.Errorf("%s: %w", PathManifest, scan.Err())
	}
	return m, nil
}

func (m Manifest) WriteTo(w io.Writer) (n int64, err error) {
	w = &wrap70{Writer: w}
	write := func(s string) {
		if err == nil {
			wn, werr := w.Write([]byte(s))
			n, err = n+int64(wn), werr
		}
	}
	for _, attr := range m[""] {
		write(attr + "\r\n")
	}
	if err != nil {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 && names[0] == "" {
		names = names[1:]
	}
	for _, name := range names {
		write("\r\n")
		wn, werr := m.WriteEntry(w, name)
		n, err = n+wn, werr
		if err != nil {
			return
		}
	}
	write("\r\n")
	return
}

func (m Manifest) WriteEntry(w io.Writer, name string) (n int64, err error) {
	w = &wrap70{Writer: w}
	write := func(s string) {
		if err == nil {
			wn, werr := w.Write([]byte(s))
			n, err = n+int64(wn), werr
		}
	}
	write("Name: " + name + "\r\n")
	for _, attr := range m[name] {
		write(attr + "\r\n")
	}
	return
}

// wrap70 writes to Writer, splitting any line exceeding 70 bytes
// (excluding the terminating "\r\n"). A continuation line is marked
// with a single leading space, per the JAR manifest spec.
type wrap70 struct {
	io.Writer
	n int
}

func (w *wrap70) Write(buf []byte) (n int, err error) {
	const max = 70
	for len(buf) > 0 {
		i := strings.IndexAny(string(buf), "\r\n")
		if i == 0 {
			for i < len(buf) && (buf[i] == '\r' || buf[i] == '\n') {
				i++
			}
			wn, werr := w.Writer.Write(buf[:i])
			n += wn
			if werr != nil {
				return n, werr
			}
			w.n = 0
			buf = buf[i:]
			continue
		}
		if i == -1 {
			i = len(buf)
		}
		if w.n == max {
			_, werr := w.Writer.Write([]byte("\r\n "))
			if werr != nil {
				return n, werr
			}
			w.n = 1
		}
		if w.n+i > max {
			i = max - w.n
		}
		wn, werr := w.Writer.Write(buf[:i])
		n += wn
		if werr != nil {
			return n, werr
		}
		w.n += i
		buf = buf[i:]
	}
	return
}
