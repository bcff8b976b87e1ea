package pdbid_test

import (
	"testing"

	"github.com/pdbsync/pdbsync/internal/pdbid"
)

func TestParseClassic(t *testing.T) {
	id, err := pdbid.Parse("1ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Kind() != pdbid.Classic {
		t.Fatalf("expected Classic, got %v", id.Kind())
	}
	if id.String() != "1abc" {
		t.Fatalf("expected canonical lower-case form, got %q", id.String())
	}
	if id.MiddleHash() != "ab" {
		t.Fatalf("expected middle hash 'ab', got %q", id.MiddleHash())
	}
}

func TestParseExtended(t *testing.T) {
	id, err := pdbid.Parse("PDB_00001ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Kind() != pdbid.Extended {
		t.Fatalf("expected Extended, got %v", id.Kind())
	}
	if id.String() != "pdb_00001abc" {
		t.Fatalf("got %q", id.String())
	}
	if id.MiddleHash() != "00" {
		t.Fatalf("expected middle hash '00', got %q", id.MiddleHash())
	}
}

func TestParseRejectsBadClassic(t *testing.T) {
	cases := []string{"", "abcd", "1ab", "1ab$", "12345"}
	for _, c := range cases {
		if _, err := pdbid.Parse(c); err == nil {
			t.Errorf("expected error parsing %q", c)
		}
	}
}

func TestParseRejectsBadExtended(t *testing.T) {
	cases := []string{"pdb_1234567", "pdb_123456789", "pdb_1234567$"}
	for _, c := range cases {
		if _, err := pdbid.Parse(c); err == nil {
			t.Errorf("expected error parsing %q", c)
		}
	}
}

func TestEqualIsCaseInsensitive(t *testing.T) {
	a, _ := pdbid.Parse("1ABC")
	b, _ := pdbid.Parse("1abc")
	if !a.Equal(b) {
		t.Fatalf("expected 1ABC to equal 1abc")
	}
}
