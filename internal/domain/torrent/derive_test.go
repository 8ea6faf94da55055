package torrent

import "testing"

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name                         string
		isActive, isOpen, isComplete bool
		want                         Status
	}{
		{"closed", false, false, false, StatusStopped},
		{"closed complete", false, false, true, StatusStopped},
		{"closed active", true, false, false, StatusStopped},
		{"closed active complete", true, false, true, StatusStopped},
		{"open inactive", false, true, false, StatusPaused},
		{"open inactive complete", false, true, true, StatusPaused},
		{"active incomplete", true, true, false, StatusDownloading},
		{"active complete", true, true, true, StatusSeeding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.isActive, tc.isOpen, tc.isComplete); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestIsComplete_FallsBackToBytes(t *testing.T) {
	if !IsComplete(true, 0, 0) {
		t.Fatalf("expected explicit flag to win")
	}
	if !IsComplete(false, 100, 100) {
		t.Fatalf("expected completed >= size to count as complete")
	}
	if IsComplete(false, 0, 0) {
		t.Fatalf("expected zero size to be incomplete")
	}
	if IsComplete(false, 100, 99) {
		t.Fatalf("expected partial payload to be incomplete")
	}
}

func TestProgress_Clamps(t *testing.T) {
	if got := Progress(0, 10); got != 0 {
		t.Fatalf("expected 0 for zero size, got %.2f", got)
	}
	if got := Progress(200, 50); got != 25 {
		t.Fatalf("expected 25, got %.2f", got)
	}
	if got := Progress(100, 150); got != 100 {
		t.Fatalf("expected clamp to 100, got %.2f", got)
	}
	if got := Progress(100, -5); got != 0 {
		t.Fatalf("expected 0 for negative completed, got %.2f", got)
	}
}

func TestETA(t *testing.T) {
	if got := ETA(1000, 400, 0); got != 0 {
		t.Fatalf("expected 0 with no rate, got %.2f", got)
	}
	if got := ETA(1000, 400, 100); got != 6 {
		t.Fatalf("expected 6s, got %.2f", got)
	}
	if got := ETA(1000, 1200, 100); got != 0 {
		t.Fatalf("expected 0 when overcompleted, got %.2f", got)
	}
}

func TestSnapshotClone_IsIndependent(t *testing.T) {
	s := EmptySnapshot()
	s.Torrents["a"] = Torrent{Hash: "a", Name: "one"}
	s.SystemInfo = &SystemInfo{Hostname: "box"}

	c := s.Clone()
	c.Torrents["a"] = Torrent{Hash: "a", Name: "changed"}
	c.SystemInfo.Hostname = "other"

	if s.Torrents["a"].Name != "one" {
		t.Fatalf("clone shares torrent map")
	}
	if s.SystemInfo.Hostname != "box" {
		t.Fatalf("clone shares system info")
	}
}
