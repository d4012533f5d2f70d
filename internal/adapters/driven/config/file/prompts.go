package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// defaults holds the built-in prompts, one <name>.txt per study mode, and
// the README copied next to them.
//
//go:embed defaults/*.txt defaults/README.md
var defaults embed.FS

// PromptStore serves study prompts from <dir>/<name>.txt. The first Load
// seeds missing files from the built-in set so users have something to
// edit. A file that is missing or does not parse as a text/template falls
// back to the built-in prompt.
type PromptStore struct {
	dir  string
	seed sync.Once

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store rooted at dir, or <config dir>/prompts
// when dir is empty. No files are touched until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the template text for name.
func (s *PromptStore) Load(name string) (string, error) {
	s.seed.Do(s.seedDefaults)

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.read(name)
	if err != nil {
		fallback, ferr := builtin(name)
		if ferr != nil {
			return "", fmt.Errorf("load prompt %q: %w", name, err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompts: %s: %v, using built-in", name, err)
		}
		return fallback, nil
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// Reload drops cached prompts so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// read loads and parse-checks one prompt file.
func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if _, err := template.New(name).Parse(prompt); err != nil {
		return "", err
	}
	return prompt, nil
}

// seedDefaults writes every built-in file that does not exist yet. Failure
// is logged, not returned: Load still serves the built-in prompts.
func (s *PromptStore) seedDefaults() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		logger.Warn("prompts: create %s: %v", s.dir, err)
		return
	}
	entries, err := fs.ReadDir(defaults, "defaults")
	if err != nil {
		return
	}
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaults.ReadFile("defaults/" + e.Name())
		if err != nil {
			continue
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			logger.Warn("prompts: write %s: %v", path, err)
			return
		}
	}
}

// builtin returns the embedded prompt for name.
func builtin(name string) (string, error) {
	data, err := defaults.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("%w: unknown prompt %q", fs.ErrNotExist, name)
	}
	return strings.TrimSpace(string(data)), nil
}
