package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
)

var errCorruptFile = stderrors.New("session file is corrupt")

// FileBackend keeps the session of a profile in a JSON file readable only by
// its owner. Every update replaces the file through a rename, so readers see
// either the old or the new content.
type FileBackend struct {
	path   string
	logger logger.Logger
	mu     sync.Mutex
}

// NewFileBackend creates the backend, creating dir if needed.
func NewFileBackend(dir, profile string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("session directory is not set")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	name := "session.json"
	if profile != "" && profile != "default" {
		name = "session-" + sanitizeProfile(profile) + ".json"
	}

	return &FileBackend{path: filepath.Join(dir, name), logger: logger.NewNop()}, nil
}

// Path returns the session file path.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.load()
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := data[key]; ok {
			values[key] = v
		}
	}
	return values, nil
}

func (b *FileBackend) Update(_ context.Context, set map[string]string, del ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.load()
	if stderrors.Is(err, errCorruptFile) {
		// the next write replaces whatever is there
		b.logger.Warn("discarding corrupt session file",
			logger.String("path", b.path),
			logger.Error(err))
		data = make(map[string]string)
	} else if err != nil {
		return err
	}

	for _, key := range del {
		delete(data, key)
	}
	for key, value := range set {
		data[key] = value
	}

	if len(data) == 0 {
		if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}

	return b.write(data)
}

// Ping checks that the directory is writable.
func (b *FileBackend) Ping(_ context.Context) error {
	f, err := os.CreateTemp(filepath.Dir(b.path), ".ping-*")
	if err != nil {
		return fmt.Errorf("session directory is not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) load() (map[string]string, error) {
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	data := make(map[string]string)
	if len(strings.TrimSpace(string(raw))) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptFile, err)
	}
	return data, nil
}

func (b *FileBackend) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func sanitizeProfile(profile string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, profile)
}
