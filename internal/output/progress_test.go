package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestDownload_NonTTYDrawsNothing(t *testing.T) {
	var buf bytes.Buffer
	d := NewDownload(&buf, "catalog")

	if w := d.Start(1024); w != nil {
		t.Fatal("Start() on a non-TTY writer should return nil")
	}
	d.Finish()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestDownload_CountsBytes(t *testing.T) {
	var buf bytes.Buffer
	d := NewDownload(&buf, "catalog")
	d.force = true

	w := d.Start(4096)
	if w == nil {
		t.Fatal("Start() returned nil writer")
	}
	if !strings.Contains(buf.String(), "catalog") {
		t.Errorf("expected description drawn on start, got %q", buf.String())
	}

	if _, err := w.Write(make([]byte, 1024)); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if _, err := w.Write(make([]byte, 3072)); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	state := d.bar.State()
	if state.CurrentBytes != 4096 {
		t.Errorf("CurrentBytes = %v, want 4096", state.CurrentBytes)
	}
	if state.CurrentPercent != 1 {
		t.Errorf("CurrentPercent = %v, want 1", state.CurrentPercent)
	}

	d.Finish()
	if d.bar != nil {
		t.Error("Finish() should release the bar")
	}

	// Finish is idempotent.
	d.Finish()
}

func TestSpinner_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Loading catalog")
	s.SetWriter(&buf)

	s.Start()
	s.Start() // second start is a no-op
	s.UpdateMessage("Still loading")
	s.StopWithMessage("done")
	s.Stop() // stop after stop is a no-op

	got := buf.String()
	if strings.Count(got, "Loading catalog...") != 1 {
		t.Errorf("expected the message once, got %q", got)
	}
	if !strings.HasSuffix(got, "done\n") {
		t.Errorf("expected final message, got %q", got)
	}
}
