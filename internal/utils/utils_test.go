package utils

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestGenerateSourceID(t *testing.T) {
	// Integration test using the OS filesystem
	tmp, err := os.CreateTemp("", "bundle_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmp.Name())

	// Write dummy content
	if _, err := tmp.Write([]byte("fake tensor content")); err != nil {
		t.Fatal(err)
	}
	tmp.Close()

	id, err := GenerateSourceID(tmp.Name())
	if err != nil || id == "" {
		t.Errorf("Failed to generate ID: %v", err)
	}

	// Verify Determinism
	id2, _ := GenerateSourceID(tmp.Name())
	if id != id2 {
		t.Errorf("Hash is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity (Change content -> Change ID)
	f, _ := os.OpenFile(tmp.Name(), os.O_APPEND|os.O_WRONLY, 0644)
	f.Write([]byte(" modification"))
	f.Close()

	id3, _ := GenerateSourceID(tmp.Name())
	if id == id3 {
		t.Error("Hash did not change after file modification")
	}

	if _, err := GenerateSourceID("does-not-exist.pnt"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSafeCommandCapturesStderr(t *testing.T) {
	cmd := NewSafeCommand(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err := cmd.Run(); err == nil {
		t.Fatal("Expected non-zero exit")
	}
	if got := cmd.Stderr.String(); got != "boom\n" {
		t.Errorf("Expected captured stderr %q, got %q", "boom\n", got)
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{65 * time.Second, "00:01:05"},
		{3661 * time.Second, "01:01:01"},
	}

	for _, tt := range tests {
		if got := FmtDuration(tt.d); got != tt.want {
			t.Errorf("FmtDuration(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}
