// Package archive wraps a zip container behind the small adapter
// interface the rest of the pipeline consumes: load, enumerate, read,
// put, remove, serialize. It is the one place that talks to
// archive/zip directly.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"apkdebug/internal/apkerr"
)

// registerBestCompression wires klauspost/compress's flate implementation in as
// the zip DEFLATE compressor, pinned to best-compression, once per process.
var registerBestCompression = sync.OnceFunc(func() {
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})
})

// Entry is an ordered (name, bytes, is_directory) triple, per spec's
// archive entry data model.
type Entry struct {
	Name  string
	Data  []byte
	IsDir bool
}

// Archive is an ordered collection of entries, exclusively owned by
// whichever stage currently holds it (the orchestrator, for the
// lifetime of a pipeline run).
type Archive struct {
	order   []string // insertion order, the "stable order" iteration uses
	entries map[string]*Entry
}

func New() *Archive {
	return &Archive{entries: map[string]*Entry{}}
}

// Load parses buf as a zip container and returns a freshly populated Archive.
func Load(buf []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, apkerr.MalformedArchive
	}
	a := New()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			a.putEntry(&Entry{Name: f.Name, IsDir: true})
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, apkerr.MalformedArchive
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, apkerr.MalformedArchive
		}
		a.putEntry(&Entry{Name: f.Name, Data: data})
	}
	return a, nil
}

// Enumerate returns entries in the archive's stable iteration order.
func (a *Archive) Enumerate() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.entries[name])
	}
	return out
}

// Read returns the bytes of a required entry, or apkerr.NotFound.
func (a *Archive) Read(name string) ([]byte, error) {
	e, ok := a.entries[name]
	if !ok || e.IsDir {
		return nil, apkerr.NotFound
	}
	return e.Data, nil
}

// Has reports whether name is present (file or directory).
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// Put adds or overwrites a file entry by name.
func (a *Archive) Put(name string, data []byte) {
	a.putEntry(&Entry{Name: name, Data: data})
}

func (a *Archive) putEntry(e *Entry) {
	if _, exists := a.entries[e.Name]; !exists {
		a.order = append(a.order, e.Name)
	}
	a.entries[e.Name] = e
}

// Remove deletes an entry by name. Removing an absent entry is a no-op.
func (a *Archive) Remove(name string) {
	if _, ok := a.entries[name]; !ok {
		return
	}
	delete(a.entries, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i:i], a.order[i+1:]...)
			break
		}
	}
}

// RemoveMatching removes every entry whose name matches pred.
func (a *Archive) RemoveMatching(pred func(name string) bool) {
	var toRemove []string
	for _, name := range a.order {
		if pred(name) {
			toRemove = append(toRemove, name)
		}
	}
	for _, name := range toRemove {
		a.Remove(name)
	}
}

// Serialize writes the archive out as a standard zip container with
// DEFLATE-compressed entries at best-compression, preserving insertion
// order so the output is deterministic across runs over the same input.
func (a *Archive) Serialize() ([]byte, error) {
	registerBestCompression()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, name := range a.order {
		e := a.entries[name]
		if e.IsDir {
			hdr := &zip.FileHeader{Name: ensureDirSuffix(e.Name)}
			hdr.SetMode(0o755)
			if _, err := zw.CreateHeader(hdr); err != nil {
				return nil, err
			}
			continue
		}
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ensureDirSuffix(name string) string {
	if len(name) == 0 || name[len(name)-1] == '/' {
		return name
	}
	return name + "/"
}
