package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/logpack/logpack/types"
)

func testMessages() []*types.Message {
	return []*types.Message{
		{Role: types.RoleSystem, Content: "preamble", Metadata: map[string]any{"kind": "init"}, Seq: 0},
		{Role: types.RoleUser, Content: "hi", Seq: 1},
		{Role: types.RoleAssistant, Content: "hello", Metadata: map[string]any{"tool_call_id": "t1"}, Seq: 2},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir(), false)
	ctx := context.Background()

	want := testMessages()
	if err := store.WriteLog(ctx, "2024-01-01-session", want); err != nil {
		t.Fatalf("WriteLog() error = %v", err)
	}

	log, err := store.ReadLog(ctx, "2024-01-01-session")
	if err != nil {
		t.Fatalf("ReadLog() error = %v", err)
	}

	if !reflect.DeepEqual(log.Messages, want) {
		t.Errorf("ReadLog() = %+v, want %+v", log.Messages, want)
	}
}

func TestFileStore_ReadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir(), false)

	if _, err := store.ReadLog(context.Background(), "nope"); !errors.Is(err, ErrLogNotFound) {
		t.Errorf("ReadLog() error = %v, want ErrLogNotFound", err)
	}
}

func TestFileStore_ListLogs(t *testing.T) {
	store := NewFileStore(t.TempDir(), false)
	ctx := context.Background()

	if err := store.WriteLog(ctx, "b-session", testMessages()); err != nil {
		t.Fatalf("WriteLog() error = %v", err)
	}
	if err := store.WriteLog(ctx, "a-session", testMessages()[:1]); err != nil {
		t.Fatalf("WriteLog() error = %v", err)
	}

	infos, err := store.ListLogs(ctx)
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}

	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].ID != "a-session" || infos[1].ID != "b-session" {
		t.Errorf("logs not sorted by ID: %v", infos)
	}
	if infos[0].MessageCount != 1 || infos[1].MessageCount != 3 {
		t.Errorf("message counts = %d, %d, want 1, 3", infos[0].MessageCount, infos[1].MessageCount)
	}
}

func TestFileStore_ListLogsEmptyRoot(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"), false)

	infos, err := store.ListLogs(context.Background())
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("infos = %v, want empty", infos)
	}
}

func TestFileStore_FailedWriteLeavesOriginalIntact(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, false)
	ctx := context.Background()

	original := testMessages()
	if err := store.WriteLog(ctx, "session", original); err != nil {
		t.Fatalf("WriteLog() error = %v", err)
	}

	// Block the temporary file's path with a directory so the next
	// write fails before it can touch the canonical file.
	tmpPath := filepath.Join(root, "session", logFileName+".tmp")
	if err := os.Mkdir(tmpPath, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	err := store.WriteLog(ctx, "session", original[:1])
	if err == nil {
		t.Fatal("WriteLog() succeeded, want error")
	}

	log, err := store.ReadLog(ctx, "session")
	if err != nil {
		t.Fatalf("ReadLog() after failed write error = %v", err)
	}
	if !reflect.DeepEqual(log.Messages, original) {
		t.Errorf("log changed after failed write:\n got %+v\nwant %+v", log.Messages, original)
	}
}

func TestFileStore_BackupBeforeRewrite(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, true)
	ctx := context.Background()

	first := testMessages()
	if err := store.WriteLog(ctx, "session", first); err != nil {
		t.Fatalf("first WriteLog() error = %v", err)
	}
	if err := store.WriteLog(ctx, "session", first[:1]); err != nil {
		t.Fatalf("second WriteLog() error = %v", err)
	}

	backup := filepath.Join(root, "session", backupFileName)
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	canonical := filepath.Join(root, "session", logFileName)
	backupData, _ := os.ReadFile(backup)
	canonicalData, _ := os.ReadFile(canonical)

	if len(backupData) <= len(canonicalData) {
		t.Error("backup should hold the pre-rewrite (longer) content")
	}
}
