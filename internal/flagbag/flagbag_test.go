package flagbag_test

import (
	"reflect"
	"testing"

	"github.com/pdbsync/pdbsync/internal/flagbag"
)

func TestMergeOverlayWins(t *testing.T) {
	base := flagbag.Bag{Delete: flagbag.WithBool(false), Compress: flagbag.WithBool(true)}
	overlay := flagbag.Bag{Delete: flagbag.WithBool(true)}
	out := flagbag.Merge(base, overlay)
	if out.Delete == nil || !*out.Delete {
		t.Fatalf("expected overlay Delete=true to win, got %v", out.Delete)
	}
	if out.Compress == nil || !*out.Compress {
		t.Fatalf("expected base Compress=true to survive, got %v", out.Compress)
	}
}

func TestMergeUnsetOverlayKeepsBase(t *testing.T) {
	base := flagbag.Bag{Timeout: flagbag.WithInt(30)}
	overlay := flagbag.Bag{}
	out := flagbag.Merge(base, overlay)
	if out.Timeout == nil || *out.Timeout != 30 {
		t.Fatalf("expected base Timeout=30 to survive merge with empty overlay, got %v", out.Timeout)
	}
}

func TestMergeAssociative(t *testing.T) {
	a := flagbag.Bag{Delete: flagbag.WithBool(true)}
	b := flagbag.Bag{Compress: flagbag.WithBool(true)}
	c := flagbag.Bag{Checksum: flagbag.WithBool(true)}

	left := flagbag.Merge(flagbag.Merge(a, b), c)
	right := flagbag.Merge(a, flagbag.Merge(b, c))

	if !reflect.DeepEqual(ToArgvSorted(left), ToArgvSorted(right)) {
		t.Fatalf("merge is not associative: left=%v right=%v", left, right)
	}
}

func ToArgvSorted(b flagbag.Bag) []string {
	return flagbag.ToArgv(b)
}

func TestMergeIdempotent(t *testing.T) {
	base := flagbag.Bag{Delete: flagbag.WithBool(true), Exclude: []string{"*.tmp"}}
	once := flagbag.Merge(base, flagbag.Bag{})
	twice := flagbag.Merge(once, flagbag.Bag{})
	if !reflect.DeepEqual(ToArgvSorted(once), ToArgvSorted(twice)) {
		t.Fatalf("merging with empty overlay twice is not idempotent")
	}
}

func TestMergeExcludeListReplacesNotAccumulates(t *testing.T) {
	base := flagbag.Bag{Exclude: []string{"a", "b"}}
	overlay := flagbag.Bag{Exclude: []string{"c"}}
	out := flagbag.Merge(base, overlay)
	if !reflect.DeepEqual(out.Exclude, []string{"c"}) {
		t.Fatalf("expected overlay to replace base Exclude list, got %v", out.Exclude)
	}
}

func TestValidateVerboseQuietMutuallyExclusive(t *testing.T) {
	b := flagbag.Bag{Verbose: flagbag.WithBool(true), Quiet: flagbag.WithBool(true)}
	err := flagbag.Validate(b)
	if err == nil {
		t.Fatal("expected error for verbose+quiet")
	}
	ferr, ok := err.(*flagbag.Error)
	if !ok || ferr.Kind != flagbag.MutuallyExclusive {
		t.Fatalf("expected MutuallyExclusive error, got %v", err)
	}
}

func TestValidatePartialDirRequiresPartial(t *testing.T) {
	b := flagbag.Bag{PartialDir: flagbag.WithString("/tmp/partial")}
	err := flagbag.Validate(b)
	if err == nil {
		t.Fatal("expected MissingDependency error")
	}
}

func TestValidateNegativeTimeoutRejected(t *testing.T) {
	b := flagbag.Bag{Timeout: flagbag.WithInt(-1)}
	if err := flagbag.Validate(b); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestValidateMinSizeGreaterThanMaxSize(t *testing.T) {
	b := flagbag.Bag{MinSize: flagbag.WithString("10G"), MaxSize: flagbag.WithString("1G")}
	err := flagbag.Validate(b)
	if err == nil {
		t.Fatal("expected InvalidSize error")
	}
}

func TestValidateAcceptsSaneBag(t *testing.T) {
	b := flagbag.Bag{
		Delete:   flagbag.WithBool(true),
		Partial:  flagbag.WithBool(true),
		MinSize:  flagbag.WithString("1K"),
		MaxSize:  flagbag.WithString("5G"),
		PartialDir: flagbag.WithString(".rsync-partial"),
	}
	if err := flagbag.Validate(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestToArgvOrderAndQuietSuppressesProgress(t *testing.T) {
	b := flagbag.Bag{
		Delete: flagbag.WithBool(true),
		Quiet:  flagbag.WithBool(true),
	}
	argv := flagbag.ToArgv(b)
	want := []string{"-av", "--delete", "--quiet"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("got %v, want %v", argv, want)
	}
}

func TestToArgvExcludeIncludeOrderPreserved(t *testing.T) {
	b := flagbag.Bag{
		Exclude: []string{"*.tmp", "*.log"},
		Include: []string{"keep.txt"},
	}
	argv := flagbag.ToArgv(b)
	want := []string{
		"-av", "--info=progress2",
		"--exclude", "*.tmp", "--exclude", "*.log",
		"--include", "keep.txt",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("got %v, want %v", argv, want)
	}
}

func TestToArgvBoundsAndPaths(t *testing.T) {
	b := flagbag.Bag{
		Timeout:  flagbag.WithInt(60),
		BWLimit:  flagbag.WithInt(1024),
		MaxSize:  flagbag.WithString("5G"),
		Chmod:    flagbag.WithString("Du=rwx,Fu=rw"),
	}
	argv := flagbag.ToArgv(b)
	want := []string{
		"-av", "--info=progress2",
		"--timeout=60", "--bwlimit=1024",
		"--max-size", "5G",
		"--chmod", "Du=rwx,Fu=rw",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("got %v, want %v", argv, want)
	}
}
