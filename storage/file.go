package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/logpack/logpack/types"
)

const (
	logFileName    = "conversation.jsonl"
	backupFileName = "conversation.backup.jsonl"
)

// FileStore keeps one directory per log under a root directory, with
// the message sequence in a conversation.jsonl file. Writes go to a
// temporary file in the same directory and are swapped in with a
// rename, so a crash mid-write leaves the original file intact.
type FileStore struct {
	root   string
	backup bool
}

// NewFileStore creates a file store rooted at the given directory.
// When backup is true, the previous conversation file is copied to a
// .backup.jsonl sibling before each rewrite.
func NewFileStore(root string, backup bool) *FileStore {
	return &FileStore{root: root, backup: backup}
}

// ListLogs enumerates the log directories under the root.
func (s *FileStore) ListLogs(ctx context.Context) ([]types.LogInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}

	var infos []types.LogInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(s.root, entry.Name(), logFileName)
		stat, err := os.Stat(path)
		if err != nil {
			continue // not a conversation directory
		}

		count, err := s.countMessages(path)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect log %s: %w", entry.Name(), err)
		}

		infos = append(infos, types.LogInfo{
			ID:           entry.Name(),
			MessageCount: count,
			UpdatedAt:    stat.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// ReadLog reads the full conversation file for one log.
func (s *FileStore) ReadLog(ctx context.Context, id string) (*types.Log, error) {
	file, err := os.Open(s.logPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLogNotFound, id)
		}
		return nil, fmt.Errorf("failed to open log %s: %w", id, err)
	}
	defer file.Close()

	var messages []*types.Message
	decoder := json.NewDecoder(file)
	for {
		var msg types.Message
		if err := decoder.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode log %s: %w", id, err)
		}
		messages = append(messages, &msg)
	}

	return &types.Log{ID: id, Messages: messages}, nil
}

// WriteLog materializes the new sequence in a temporary file and only
// swaps it into the canonical location after the write fully succeeds.
func (s *FileStore) WriteLog(ctx context.Context, id string, messages []*types.Message) error {
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory for %s: %w", id, err)
	}

	canonical := s.logPath(id)
	tmp := canonical + ".tmp"

	if err := s.writeFile(tmp, messages); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write log %s: %w", id, err)
	}

	if s.backup {
		if err := copyFile(canonical, filepath.Join(dir, backupFileName)); err != nil && !os.IsNotExist(err) {
			os.Remove(tmp)
			return fmt.Errorf("failed to back up log %s: %w", id, err)
		}
	}

	if err := os.Rename(tmp, canonical); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to swap log %s into place: %w", id, err)
	}

	return nil
}

func (s *FileStore) logPath(id string) string {
	return filepath.Join(s.root, id, logFileName)
}

func (s *FileStore) writeFile(path string, messages []*types.Message) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	for _, msg := range messages {
		if err := encoder.Encode(msg); err != nil {
			file.Close()
			return err
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (s *FileStore) countMessages(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	decoder := json.NewDecoder(file)
	for {
		var msg json.RawMessage
		if err := decoder.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		count++
	}
	return count, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
