package rsync

import (
	"bufio"
	"strings"
	"testing"
	"time"
)

const sample = `Number of files: 10
Number of regular files transferred: 2
Total file size: 5,120 bytes
Total transferred file size: 4,096 bytes
Literal data: 4,096 bytes
Matched data: 0 bytes
Total bytes sent: 2.00K
Total bytes received: 80`

func TestParseStats(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader(sample))
	st, err := ParseStats(sc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if st.NumFiles != 10 || st.RegTransferred != 2 || st.TotalFileSize != 5120 || st.BytesSent == 0 {
		t.Fatalf("unexpected parsed stats: %+v", st)
	}
}

func TestStatsAddSumsCountersAndTakesMaxGenTime(t *testing.T) {
	a := Stats{NumFiles: 3, TotalFileSize: 100, FileListGenSeconds: 0.5}
	b := Stats{NumFiles: 4, TotalFileSize: 50, FileListGenSeconds: 1.2}

	sum := a.Add(b)

	if sum.NumFiles != 7 {
		t.Errorf("NumFiles = %d, want 7", sum.NumFiles)
	}
	if sum.TotalFileSize != 150 {
		t.Errorf("TotalFileSize = %d, want 150", sum.TotalFileSize)
	}
	if sum.FileListGenSeconds != 1.2 {
		t.Errorf("FileListGenSeconds = %v, want 1.2 (max, not sum)", sum.FileListGenSeconds)
	}
}

func TestStatsSummaryMentionsKeyCounters(t *testing.T) {
	s := Stats{NumFiles: 5, CreatedFiles: 2, TotalTransferredSize: 2_000_000}
	out := s.Summary(10 * time.Second)
	if !strings.Contains(out, "Number of files: 5") {
		t.Errorf("Summary missing file count: %q", out)
	}
	if !strings.Contains(out, "MB") {
		t.Errorf("Summary missing formatted byte size: %q", out)
	}
}
