package preset_test

import (
	"testing"

	"github.com/pdbsync/pdbsync/internal/preset"
)

func TestGetKnownPresets(t *testing.T) {
	for _, name := range []string{"safe", "fast", "minimal", "conservative"} {
		if _, ok := preset.Get(name); !ok {
			t.Fatalf("expected preset %q to exist", name)
		}
	}
}

func TestGetUnknownPreset(t *testing.T) {
	if _, ok := preset.Get("nonexistent"); ok {
		t.Fatal("expected ok=false for unknown preset")
	}
}

func TestSafePresetShape(t *testing.T) {
	b := preset.MustGet("safe")
	if b.Delete == nil || *b.Delete {
		t.Fatal("safe preset should not delete")
	}
	if b.Checksum == nil || !*b.Checksum {
		t.Fatal("safe preset should checksum")
	}
}

func TestFastPresetDeletesAndIsQuiet(t *testing.T) {
	b := preset.MustGet("fast")
	if b.Delete == nil || !*b.Delete {
		t.Fatal("fast preset should delete")
	}
	if b.Quiet == nil || !*b.Quiet {
		t.Fatal("fast preset should be quiet")
	}
}

func TestMinimalPresetAllOff(t *testing.T) {
	b := preset.MustGet("minimal")
	for name, v := range map[string]*bool{
		"delete": b.Delete, "compress": b.Compress, "checksum": b.Checksum,
		"partial": b.Partial, "backup": b.Backup, "verbose": b.Verbose, "quiet": b.Quiet,
	} {
		if v == nil || *v {
			t.Fatalf("minimal preset field %s should be false, got %v", name, v)
		}
	}
}

func TestConservativePresetBacksUp(t *testing.T) {
	b := preset.MustGet("conservative")
	if b.Backup == nil || !*b.Backup {
		t.Fatal("conservative preset should back up")
	}
}

func TestListSortedByName(t *testing.T) {
	descs := preset.List()
	if len(descs) != 4 {
		t.Fatalf("expected 4 presets, got %d", len(descs))
	}
	for i := 1; i < len(descs); i++ {
		if descs[i-1].Name > descs[i].Name {
			t.Fatalf("List() not sorted: %v", descs)
		}
	}
}
