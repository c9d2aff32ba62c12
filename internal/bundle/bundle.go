// Package bundle implements base+split bundle detection and merging
// (spec §4.2): picking a base application archive among nested
// archives and unioning split entries under base-wins precedence.
package bundle

import (
	"strings"
	"sync"

	"apkdebug/internal/apkerr"
	"apkdebug/internal/archive"
)

const archiveSuffix = ".apk"

// nestedArchive is one application archive found at the top level of a bundle.
type nestedArchive struct {
	name string
	data []byte
}

// IsBundle reports whether a looks like a bundle: its top-level zip
// entries include at least one nested application archive.
func IsBundle(a *archive.Archive) bool {
	return len(findNested(a)) > 0
}

// Merge selects the base archive among the bundle's nested archives and
// unions every split's non-META-INF entries into it, base winning any
// collision. Splits are read in parallel (entry extraction is
// embarrassingly parallel per spec §5), but merged back in their
// enumeration order so collision resolution stays reproducible.
func Merge(a *archive.Archive) (*archive.Archive, error) {
	nested := findNested(a)
	if len(nested) == 0 {
		return nil, apkerr.EmptyBundle
	}

	baseIdx := selectBase(nested)
	loaded := make([]*archive.Archive, len(nested))
	errs := make([]error, len(nested))

	var wg sync.WaitGroup
	for i, n := range nested {
		wg.Add(1)
		go func(i int, n nestedArchive) {
			defer wg.Done()
			loaded[i], errs[i] = archive.Load(n.data)
		}(i, n)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	working := archive.New()
	for _, e := range loaded[baseIdx].Enumerate() {
		if e.IsDir {
			continue
		}
		working.Put(e.Name, e.Data)
	}

	for i, split := range loaded {
		if i == baseIdx {
			continue
		}
		for _, e := range split.Enumerate() {
			if e.IsDir {
				continue
			}
			if strings.HasPrefix(e.Name, "META-INF/") {
				continue
			}
			if working.Has(e.Name) {
				continue // base wins
			}
			working.Put(e.Name, e.Data)
		}
	}

	return working, nil
}

func findNested(a *archive.Archive) []nestedArchive {
	var out []nestedArchive
	for _, e := range a.Enumerate() {
		if e.IsDir {
			continue
		}
		if !strings.HasSuffix(e.Name, archiveSuffix) {
			continue
		}
		out = append(out, nestedArchive{name: e.Name, data: e.Data})
	}
	return out
}

// selectBase picks the base archive index per spec §4.2's ordered rules.
func selectBase(nested []nestedArchive) int {
	baseName := func(n nestedArchive) string {
		parts := strings.Split(n.name, "/")
		return strings.ToLower(parts[len(parts)-1])
	}
	for i, n := range nested {
		if baseName(n) == "base.apk" {
			return i
		}
	}
	for i, n := range nested {
		if strings.Contains(baseName(n), "base") {
			return i
		}
	}
	for i, n := range nested {
		if strings.Contains(baseName(n), "universal") {
			return i
		}
	}
	return 0
}
