// Package fileformat enumerates the PDB archive's closed set of file
// formats and their pure-function properties (extension, subdirectory,
// compression).
package fileformat

import (
	"fmt"
	"strings"
)

// Format is one of the archive's distribution formats.
type Format string

const (
	MmCIF Format = "mmCIF"
	PDB   Format = "PDB"
	BCIF  Format = "bCIF"
)

// All lists every base format (without the .gz compressed variant).
var All = []Format{MmCIF, PDB, BCIF}

type descriptor struct {
	ext    string
	subdir string
}

var descriptors = map[Format]descriptor{
	MmCIF: {ext: ".cif", subdir: "mmCIF"},
	PDB:   {ext: ".pdb", subdir: "pdb"},
	BCIF:  {ext: ".bcif", subdir: "bcif"},
}

// Resolve canonicalizes a format name (case-insensitive, optional
// "-gz"/".gz" suffix) into a Format and a compression flag.
func Resolve(name string) (Format, bool, error) {
	key := strings.TrimSpace(name)
	gz := false
	for _, suf := range []string{".gz", "-gz", "_gz"} {
		if strings.HasSuffix(strings.ToLower(key), suf) {
			gz = true
			key = key[:len(key)-len(suf)]
			break
		}
	}
	lower := strings.ToLower(key)
	for _, f := range All {
		if strings.ToLower(string(f)) == lower {
			return f, gz, nil
		}
	}
	return "", false, fmt.Errorf("fileformat: unknown format %q", name)
}

// Extension returns the base extension for f, not including compression.
func (f Format) Extension() (string, error) {
	d, ok := descriptors[f]
	if !ok {
		return "", fmt.Errorf("fileformat: %q has no extension", f)
	}
	return d.ext, nil
}

// Subdir returns the canonical subdirectory name rsync mirrors this format
// under (e.g. "mmCIF", "pdb", "bcif").
func (f Format) Subdir() (string, error) {
	d, ok := descriptors[f]
	if !ok {
		return "", fmt.Errorf("fileformat: %q has no subdir", f)
	}
	return d.subdir, nil
}

// FileName builds the canonical file name for entryID in this format,
// optionally gzip-compressed.
func (f Format) FileName(entryID string, gz bool) (string, error) {
	ext, err := f.Extension()
	if err != nil {
		return "", err
	}
	name := strings.ToLower(entryID) + ext
	if gz {
		name += ".gz"
	}
	return name, nil
}

func (f Format) String() string { return string(f) }
