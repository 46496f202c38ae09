package geofile

import (
	"path/filepath"
	"strings"
)

// File is an immutable view of a file at some point in the conversion
// chain. A conversion step produces a new File value rather than mutating
// its source.
type File struct {
	Path   string
	Format Format
}

// NewFile constructs a File from a local path or object key, inferring the
// format from the suffix.
func NewFile(path string) (File, error) {
	format, err := ParseFormat(path)
	if err != nil {
		return File{}, err
	}
	return File{Path: path, Format: format}, nil
}

// Name returns the base name of the file.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Stem returns the base name without its suffix.
func (f File) Stem() string {
	base := f.Name()
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Derive returns the File a conversion into target would produce, placed
// next to the source. Extra name parts (zoom range, caller suffix) are
// joined into the stem with dashes.
func (f File) Derive(target Format, parts ...string) File {
	stem := f.Stem()
	for _, part := range parts {
		if part == "" {
			continue
		}
		stem += "-" + part
	}
	return File{
		Path:   filepath.Join(filepath.Dir(f.Path), stem+target.Suffix()),
		Format: target,
	}
}
