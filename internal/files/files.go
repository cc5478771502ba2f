// Package files is the file exchange gateway: it asks the host shell for a
// path and moves bytes between that path and the engine.
package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrCancelled means the user dismissed the path picker. It is not a failure.
var ErrCancelled = errors.New("file selection cancelled")

// Filter restricts the files offered by a picker
type Filter struct {
	Name       string
	Extensions []string
}

// JSONFilters are offered for backups
var JSONFilters = []Filter{
	{Name: "Arquivos JSON", Extensions: []string{"json"}},
	{Name: "Todos os Arquivos", Extensions: []string{"*"}},
}

// Dialog is implemented by the host shell. Both methods block until the user
// picks a path or cancels (ErrCancelled).
type Dialog interface {
	SavePath(ctx context.Context, defaultPath string, filters []Filter) (string, error)
	OpenPath(ctx context.Context, defaultDir string, filters []Filter) (string, error)
}

// Exchange reads and writes backup files in a directory
type Exchange struct {
	dir    string
	dialog Dialog
}

// NewExchange creates an exchange rooted at dir
func NewExchange(dir string, dialog Dialog) *Exchange {
	return &Exchange{dir: dir, dialog: dialog}
}

// Dir returns the backup directory
func (e *Exchange) Dir() string {
	return e.dir
}

// EnsureDir creates the backup directory if it does not exist
func (e *Exchange) EnsureDir() error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	return nil
}

// DefaultFilename returns MM-DD-YYYY_backup_contatos.json for t
func DefaultFilename(t time.Time) string {
	return fmt.Sprintf("%02d-%02d-%04d_backup_contatos.json", int(t.Month()), t.Day(), t.Year())
}

// Save asks for a destination, proposing the default backup name for now,
// and writes data there. It returns the chosen path.
func (e *Exchange) Save(ctx context.Context, now time.Time, data []byte) (string, error) {
	if err := e.EnsureDir(); err != nil {
		return "", err
	}

	path, err := e.dialog.SavePath(ctx, filepath.Join(e.dir, DefaultFilename(now)), JSONFilters)
	if err != nil {
		return "", err
	}
	path = expand(path)
	if path == "" {
		return "", ErrCancelled
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Open asks for a source file and returns its path and contents
func (e *Exchange) Open(ctx context.Context) (string, []byte, error) {
	if err := e.EnsureDir(); err != nil {
		return "", nil, err
	}

	path, err := e.dialog.OpenPath(ctx, e.dir, JSONFilters)
	if err != nil {
		return "", nil, err
	}
	path = expand(path)
	if path == "" {
		return "", nil, ErrCancelled
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return path, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return path, data, nil
}

func expand(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// FixedDialog answers every request with the same path. Used by non-interactive commands.
type FixedDialog struct {
	Path string
}

// SavePath returns d.Path, or defaultPath when d.Path is empty
func (d FixedDialog) SavePath(_ context.Context, defaultPath string, _ []Filter) (string, error) {
	if d.Path == "" {
		return defaultPath, nil
	}
	return d.Path, nil
}

// OpenPath returns d.Path, or ErrCancelled when it is empty
func (d FixedDialog) OpenPath(context.Context, string, []Filter) (string, error) {
	if d.Path == "" {
		return "", ErrCancelled
	}
	return d.Path, nil
}
