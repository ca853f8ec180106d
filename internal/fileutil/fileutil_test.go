package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"leafspec/internal/fileutil"
	"leafspec/internal/testsupport"
)

func TestWriteFileAtomicCreatesParentAndFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.csv")

	if err := fileutil.WriteFileAtomic(target, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Fatalf("unexpected content: %q", data)
	}
	if _, err := os.Stat(target + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestWriteFileAtomicReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := fileutil.WriteFileAtomic(target, []byte("new"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("expected replacement, got %q", data)
	}
}

func TestCopyFileVerifiedCopiesBytes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	dst := filepath.Join(dir, "audit", "dst.csv")
	payload := []byte("sample_id,sensor\nleaf01,VISNIR\n")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("copy mismatch: got %q", data)
	}
}

func TestCopyFileVerifiedLargeFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	testsupport.WriteFile(t, src, 256*1024)

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if info.Size() != 256*1024 {
		t.Fatalf("destination size = %d, want %d", info.Size(), 256*1024)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.CopyFileVerified(filepath.Join(dir, "absent.csv"), filepath.Join(dir, "dst.csv"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
