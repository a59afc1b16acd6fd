package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunTestsWritesDataLog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "engine.yaml", "mod_scheme: QPSK\ngoal: X_frames\nthreshold: 4\n")
	writeFile(t, dir, "scenario.yaml", "rx: {awgn: true}\nnoise_snr: 30\n")
	master := writeFile(t, dir, "master.yaml", "engines: [engine.yaml]\nscenarios: [scenario.yaml]\nmax_frames: 20\nseed: 11\n")
	dataDir := filepath.Join(dir, "data")

	err := runTests(context.Background(), runOptions{master: master, dataDir: dataDir})
	if err != nil {
		t.Fatalf("runTests: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dataDir, "*.dat"))
	if err != nil || len(files) != 1 {
		t.Fatalf("data files = %v, %v", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// title, column header, four frames
	if len(lines) != 6 {
		t.Errorf("data log has %d lines:\n%s", len(lines), data)
	}
}

func TestRunTestsMissingMaster(t *testing.T) {
	err := runTests(context.Background(), runOptions{master: filepath.Join(t.TempDir(), "nope.yaml"), dataDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected an error for a missing master file")
	}
}
