package resolver

import (
	"context"
	"testing"

	"github.com/pdbsync/pdbsync/internal/config"
)

func TestSplitMirrorHostRsyncURL(t *testing.T) {
	host, rebuild, ok := splitMirrorHost("rsync://rsync.rcsb.org/ftp_data/structures")
	if !ok {
		t.Fatal("expected ok")
	}
	if host != "rsync.rcsb.org" {
		t.Fatalf("host = %q, want rsync.rcsb.org", host)
	}
	if got := rebuild("rsync.pdbj.org"); got != "rsync://rsync.pdbj.org/ftp_data/structures" {
		t.Fatalf("rebuild = %q", got)
	}
}

func TestSplitMirrorHostDaemonSyntax(t *testing.T) {
	host, rebuild, ok := splitMirrorHost("rsync.rcsb.org::ftp_data/structures/divided/mmCIF")
	if !ok {
		t.Fatal("expected ok")
	}
	if host != "rsync.rcsb.org" {
		t.Fatalf("host = %q, want rsync.rcsb.org", host)
	}
	if got := rebuild("rsync.ebi.ac.uk"); got != "rsync.ebi.ac.uk::ftp_data/structures/divided/mmCIF" {
		t.Fatalf("rebuild = %q", got)
	}
}

func TestSplitMirrorHostRejectsUnrecognizedForm(t *testing.T) {
	if _, _, ok := splitMirrorHost("http://example.com/foo"); ok {
		t.Fatal("expected not ok for a non-rsync url")
	}
}

func TestApplyMirrorSelectionNoopWhenAutoSelectDisabled(t *testing.T) {
	url := "rsync.rcsb.org::ftp_data/structures"
	got := applyMirrorSelection(context.Background(), config.MirrorSelection{AutoSelect: false}, url)
	if got != url {
		t.Fatalf("expected url unchanged, got %q", got)
	}
}

func TestApplyMirrorSelectionNoopWhenHostUnrecognized(t *testing.T) {
	url := "some-other-host.example::module"
	got := applyMirrorSelection(context.Background(), config.MirrorSelection{AutoSelect: true}, url)
	if got != url {
		t.Fatalf("expected url unchanged for an unrecognized host, got %q", got)
	}
}
