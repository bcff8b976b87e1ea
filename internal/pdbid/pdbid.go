// Package pdbid implements the two PDB identifier shapes used throughout
// the archive: the classic 4-character code and the newer pdb_ prefixed
// extended code.
package pdbid

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two identifier shapes.
type Kind int

const (
	// Classic is a 4-character identifier, e.g. "1abc".
	Classic Kind = iota
	// Extended is a "pdb_" prefixed 12-character identifier, e.g. "pdb_00001abc".
	Extended
)

// ID is a parsed, canonicalized PDB identifier. Equality and hashing are
// case-insensitive because the canonical form is always lower-case.
type ID struct {
	kind Kind
	norm string // canonical lower-case form
}

const extendedPrefix = "pdb_"

// Parse validates and canonicalizes s into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("pdbid: empty identifier")
	}
	lower := strings.ToLower(s)

	if strings.HasPrefix(lower, extendedPrefix) {
		rest := lower[len(extendedPrefix):]
		if len(rest) != 8 || !isAlnum(rest) {
			return ID{}, fmt.Errorf("pdbid: %q is not a valid extended id (want pdb_ + 8 alphanumeric)", s)
		}
		return ID{kind: Extended, norm: lower}, nil
	}

	if len(lower) != 4 {
		return ID{}, fmt.Errorf("pdbid: %q is not a valid classic id (want 4 characters)", s)
	}
	if lower[0] < '0' || lower[0] > '9' {
		return ID{}, fmt.Errorf("pdbid: %q must start with a digit", s)
	}
	if !isAlnum(lower[1:]) {
		return ID{}, fmt.Errorf("pdbid: %q contains non-alphanumeric characters", s)
	}
	return ID{kind: Classic, norm: lower}, nil
}

func isAlnum(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		default:
			return false
		}
	}
	return true
}

// Kind reports whether id is Classic or Extended.
func (id ID) Kind() Kind { return id.kind }

// String returns the canonical lower-case form.
func (id ID) String() string { return id.norm }

// Equal reports case-insensitive equality (both sides are already
// canonicalized by Parse, so this is a plain string comparison).
func (id ID) Equal(other ID) bool { return id.norm == other.norm }

// MiddleHash returns the 2-character shard used by divided-layout rsync
// paths: characters 2-3 for Classic ids, characters 7-8 for Extended ids.
func (id ID) MiddleHash() string {
	switch id.kind {
	case Extended:
		// "pdb_" + 8 chars; middle hash is chars 7-8 of the whole string,
		// i.e. the 3rd/4th character of the 8-char suffix.
		return id.norm[6:8]
	default:
		return id.norm[1:3]
	}
}
