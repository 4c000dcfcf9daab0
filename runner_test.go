package logpack

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/logpack/logpack/storage"
	"github.com/logpack/logpack/types"
)

// mockStore is an in-memory store with injectable failures.
type mockStore struct {
	mu   sync.Mutex
	logs map[string][]*types.Message

	readErr  map[string]error
	writeErr map[string]error
	listErr  error

	writes []string
}

func newMockStore() *mockStore {
	return &mockStore{
		logs:     make(map[string][]*types.Message),
		readErr:  make(map[string]error),
		writeErr: make(map[string]error),
	}
}

func (m *mockStore) put(id string, messages ...*types.Message) {
	for i, msg := range messages {
		msg.Seq = i
	}
	m.logs[id] = messages
}

func (m *mockStore) ListLogs(ctx context.Context) ([]types.LogInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	var infos []types.LogInfo
	for id, msgs := range m.logs {
		infos = append(infos, types.LogInfo{ID: id, MessageCount: len(msgs)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func (m *mockStore) ReadLog(ctx context.Context, id string) (*types.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.readErr[id]; err != nil {
		return nil, err
	}

	msgs, ok := m.logs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrLogNotFound, id)
	}

	snapshot := make([]*types.Message, len(msgs))
	for i, msg := range msgs {
		snapshot[i] = msg.Clone()
	}
	return &types.Log{ID: id, Messages: snapshot}, nil
}

func (m *mockStore) WriteLog(ctx context.Context, id string, messages []*types.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErr[id]; err != nil {
		return err
	}

	m.logs[id] = messages
	m.writes = append(m.writes, id)
	return nil
}

func (m *mockStore) snapshot(id string) []*types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.logs[id]
	out := make([]*types.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Clone()
	}
	return out
}

func mustRunner(t *testing.T, store storage.Store, config *Config) *Runner {
	t.Helper()
	runner, err := New(store, config, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return runner
}

func TestNew_FailsFastOnInvalidConfig(t *testing.T) {
	store := newMockStore()

	if _, err := New(store, &Config{WindowSize: -1}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(window=-1) error = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(store, &Config{Workers: -2}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(workers=-2) error = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(nil, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(nil store) error = %v, want ErrInvalidConfig", err)
	}
}

func TestRunner_CompactLog(t *testing.T) {
	store := newMockStore()
	store.put("session",
		&types.Message{Role: types.RoleSystem, Content: "A"},
		&types.Message{Role: types.RoleSystem, Content: "B"},
		&types.Message{Role: types.RoleUser, Content: "hi"},
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
		&types.Message{Role: types.RoleSystem, Content: "C"},
	)

	runner := mustRunner(t, store, nil)

	outcome, err := runner.CompactLog(context.Background(), "session")
	if err != nil {
		t.Fatalf("CompactLog() error = %v", err)
	}

	if outcome.Removed != 1 || outcome.Merged != 1 {
		t.Errorf("Removed = %d, Merged = %d, want 1, 1", outcome.Removed, outcome.Merged)
	}
	if outcome.Status() != "compacted" {
		t.Errorf("Status() = %q, want %q", outcome.Status(), "compacted")
	}
	if outcome.TokensSaved() <= 0 {
		t.Errorf("TokensSaved() = %d, want > 0", outcome.TokensSaved())
	}

	stored := store.snapshot("session")
	if len(stored) != 4 {
		t.Fatalf("stored messages = %d, want 4", len(stored))
	}
	if stored[0].Content != "A\nB" {
		t.Errorf("stored[0].Content = %q, want %q", stored[0].Content, "A\nB")
	}
}

func TestRunner_CompactLogUnchangedSkipsWrite(t *testing.T) {
	store := newMockStore()
	store.put("session",
		&types.Message{Role: types.RoleUser, Content: "hi"},
		&types.Message{Role: types.RoleAssistant, Content: "hello"},
	)

	runner := mustRunner(t, store, nil)

	outcome, err := runner.CompactLog(context.Background(), "session")
	if err != nil {
		t.Fatalf("CompactLog() error = %v", err)
	}

	if outcome.Status() != "unchanged" {
		t.Errorf("Status() = %q, want %q", outcome.Status(), "unchanged")
	}
	if len(store.writes) != 0 {
		t.Errorf("writes = %v, want none for an unchanged log", store.writes)
	}
}

func TestRunner_CompactLogIdempotent(t *testing.T) {
	store := newMockStore()
	store.put("session",
		&types.Message{Role: types.RoleSystem, Content: "A"},
		&types.Message{Role: types.RoleSystem, Content: "B"},
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
	)

	runner := mustRunner(t, store, nil)
	ctx := context.Background()

	if _, err := runner.CompactLog(ctx, "session"); err != nil {
		t.Fatalf("first CompactLog() error = %v", err)
	}
	afterFirst := store.snapshot("session")

	second, err := runner.CompactLog(ctx, "session")
	if err != nil {
		t.Fatalf("second CompactLog() error = %v", err)
	}

	if second.Removed != 0 || second.Merged != 0 {
		t.Errorf("second run Removed = %d, Merged = %d, want 0, 0", second.Removed, second.Merged)
	}
	if len(store.writes) != 1 {
		t.Errorf("writes = %v, want exactly one", store.writes)
	}
	if !reflect.DeepEqual(store.snapshot("session"), afterFirst) {
		t.Error("second run changed the stored log")
	}
}

func TestRunner_CompactLogReadError(t *testing.T) {
	store := newMockStore()
	store.readErr["session"] = errors.New("disk on fire")

	runner := mustRunner(t, store, nil)

	_, err := runner.CompactLog(context.Background(), "session")
	if !errors.Is(err, ErrStoreRead) {
		t.Errorf("CompactLog() error = %v, want ErrStoreRead", err)
	}
	if ErrorKind(err) != "store_read" {
		t.Errorf("ErrorKind() = %q, want %q", ErrorKind(err), "store_read")
	}
}

func TestRunner_CompactLogWriteErrorLeavesLogUntouched(t *testing.T) {
	store := newMockStore()
	store.put("session",
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
	)
	store.writeErr["session"] = errors.New("no space left")
	before := store.snapshot("session")

	runner := mustRunner(t, store, nil)

	_, err := runner.CompactLog(context.Background(), "session")
	if !errors.Is(err, ErrStoreWrite) {
		t.Errorf("CompactLog() error = %v, want ErrStoreWrite", err)
	}
	if !reflect.DeepEqual(store.snapshot("session"), before) {
		t.Error("stored log changed after failed write")
	}
}

func TestRunner_CompactLogMalformed(t *testing.T) {
	store := newMockStore()
	store.logs["bad"] = []*types.Message{
		{Role: types.RoleUser, Content: "hi", Seq: 0},
		{Content: "no role", Seq: 1},
	}
	before := store.snapshot("bad")

	runner := mustRunner(t, store, nil)

	_, err := runner.CompactLog(context.Background(), "bad")
	if !errors.Is(err, ErrMalformedLog) {
		t.Errorf("CompactLog() error = %v, want ErrMalformedLog", err)
	}
	if !reflect.DeepEqual(store.snapshot("bad"), before) {
		t.Error("malformed log's stored content changed")
	}
}

func TestRunner_CompactAll(t *testing.T) {
	store := newMockStore()
	store.put("a-session",
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
		&types.Message{Role: types.RoleAssistant, Content: "ok"},
	)
	store.logs["b-session"] = []*types.Message{
		{Content: "no role", Seq: 0},
	}
	store.put("c-session",
		&types.Message{Role: types.RoleUser, Content: "hi"},
	)
	badBefore := store.snapshot("b-session")

	runner := mustRunner(t, store, &Config{Workers: 2})

	report, err := runner.CompactAll(context.Background())
	if err != nil {
		t.Fatalf("CompactAll() error = %v", err)
	}

	if len(report.Outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(report.Outcomes))
	}

	statuses := make([]string, len(report.Outcomes))
	for i, out := range report.Outcomes {
		statuses[i] = out.LogID + "=" + out.Status()
	}
	want := []string{
		"a-session=compacted",
		"b-session=failed:malformed_log",
		"c-session=unchanged",
	}
	if !reflect.DeepEqual(statuses, want) {
		t.Errorf("statuses = %v, want %v", statuses, want)
	}

	if report.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", report.Failed())
	}

	summary := report.Summary()
	if !strings.Contains(summary, "3 logs") || !strings.Contains(summary, "1 failed") {
		t.Errorf("Summary() = %q", summary)
	}

	// The malformed log is bit-identical before and after the run.
	if !reflect.DeepEqual(store.snapshot("b-session"), badBefore) {
		t.Error("malformed log's stored content changed during batch run")
	}
}

func TestRunner_CompactAllListError(t *testing.T) {
	store := newMockStore()
	store.listErr = errors.New("index unavailable")

	runner := mustRunner(t, store, nil)

	if _, err := runner.CompactAll(context.Background()); !errors.Is(err, ErrStoreRead) {
		t.Errorf("CompactAll() error = %v, want ErrStoreRead", err)
	}
}

func TestRunner_CompactAllCancelledBeforeStart(t *testing.T) {
	store := newMockStore()
	store.put("a-session", &types.Message{Role: types.RoleUser, Content: "hi"})
	store.put("b-session", &types.Message{Role: types.RoleUser, Content: "hi"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := mustRunner(t, store, nil)

	report, err := runner.CompactAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CompactAll() error = %v, want context.Canceled", err)
	}
	if report == nil {
		t.Fatal("report is nil; gathered outcomes must still be returned")
	}
	if len(report.Outcomes) != 0 {
		t.Errorf("outcomes = %v, want none when cancelled before start", report.Outcomes)
	}
	if len(store.writes) != 0 {
		t.Errorf("writes = %v, want none", store.writes)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidConfig, "invalid_config"},
		{NewCompactError("compact", "x", fmt.Errorf("%w: detail", ErrMalformedLog)), "malformed_log"},
		{NewCompactError("read", "x", fmt.Errorf("%w: detail", ErrStoreRead)), "store_read"},
		{NewCompactError("write", "x", fmt.Errorf("%w: detail", ErrStoreWrite)), "store_write"},
		{errors.New("something else"), "unknown"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
