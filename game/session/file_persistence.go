package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/parking-lot-game/game/service"
)

const sessionFileExt = ".json"

// FilePersistence stores one indented JSON document per session in a directory
type FilePersistence struct {
	dir     string
	configs service.ConfigManager
}

// NewFilePersistence creates dir if needed and returns a store rooted there
func NewFilePersistence(dir string, configs service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir, configs: configs}, nil
}

// path maps a session ID onto its file; IDs that could escape dir are refused
func (fp *FilePersistence) path(id string) (string, error) {
	if !validSessionID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return filepath.Join(fp.dir, id+sessionFileExt), nil
}

// Save writes the session atomically: a temp file in the same directory is
// renamed over the previous version
func (fp *FilePersistence) Save(sess *service.Session) error {
	data, err := encodeSession(sess, true)
	if err != nil {
		return err
	}
	target, err := fp.path(sess.ID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fp.dir, "."+sess.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads and rebuilds a session
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	target, err := fp.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return decodeSession(data, fp.configs)
}

// Delete removes the session file
func (fp *FilePersistence) Delete(id string) error {
	target, err := fp.path(id)
	if err != nil {
		return err
	}
	err = os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the IDs of every session file. Temp files and names that
// are not valid session IDs are ignored.
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionFileExt) {
			continue
		}
		if id := strings.TrimSuffix(name, sessionFileExt); validSessionID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Exists reports whether a session file is present
func (fp *FilePersistence) Exists(id string) bool {
	target, err := fp.path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(target)
	return err == nil
}
