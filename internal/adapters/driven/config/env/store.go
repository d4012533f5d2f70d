// Package env overlays environment variables and .env files on top of a
// persistent config store. Environment values win over the file; writes go
// to the underlying store.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Prefix is prepended to every derived variable name.
const Prefix = "SERCHA_STUDY_"

// aliases maps config keys to conventional variable names that are
// honoured in addition to the prefixed form.
var aliases = map[string]string{
	"openai.api_key":    "OPENAI_API_KEY",
	"anthropic.api_key": "ANTHROPIC_API_KEY",
	"ollama.base_url":   "OLLAMA_HOST",
}

// Ensure Store implements the interface.
var _ driven.ConfigStore = (*Store)(nil)

// Store is a driven.ConfigStore that consults the environment first.
type Store struct {
	base   driven.ConfigStore
	dotenv map[string]string
	lookup func(string) (string, bool)
}

// New wraps base. Each envFile that exists is read with godotenv; later
// files override earlier ones. Missing files are skipped.
func New(base driven.ConfigStore, envFiles ...string) (*Store, error) {
	merged := make(map[string]string)
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}

	return &Store{
		base:   base,
		dotenv: merged,
		lookup: os.LookupEnv,
	}, nil
}

// VarName returns the environment variable consulted for key,
// e.g. "rag.chunk_size" becomes "SERCHA_STUDY_RAG_CHUNK_SIZE".
func VarName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return Prefix + strings.ToUpper(r.Replace(key))
}

// override returns the environment value for key. Process environment
// beats .env files; the prefixed name beats an alias.
func (s *Store) override(key string) (string, bool) {
	names := []string{VarName(key)}
	if alias, ok := aliases[key]; ok {
		names = append(names, alias)
	}
	for _, name := range names {
		if v, ok := s.lookup(name); ok && v != "" {
			return v, true
		}
		if v, ok := s.dotenv[name]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Get retrieves a configuration value by key.
func (s *Store) Get(key string) (any, bool) {
	if v, ok := s.override(key); ok {
		return v, true
	}
	return s.base.Get(key)
}

// GetString retrieves a string configuration value.
func (s *Store) GetString(key string) string {
	if v, ok := s.override(key); ok {
		return v
	}
	return s.base.GetString(key)
}

// GetInt retrieves an integer configuration value.
// Unparseable overrides are ignored.
func (s *Store) GetInt(key string) int {
	if v, ok := s.override(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return s.base.GetInt(key)
}

// GetFloat retrieves a floating point configuration value.
func (s *Store) GetFloat(key string) float64 {
	if v, ok := s.override(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return s.base.GetFloat(key)
}

// GetBool retrieves a boolean configuration value.
func (s *Store) GetBool(key string) bool {
	if v, ok := s.override(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return s.base.GetBool(key)
}

// Set writes to the underlying store. An environment override for the
// same key keeps taking precedence on reads.
func (s *Store) Set(key string, value any) error {
	return s.base.Set(key, value)
}

// Save persists the underlying store.
func (s *Store) Save() error {
	return s.base.Save()
}

// Load reloads the underlying store.
func (s *Store) Load() error {
	return s.base.Load()
}

// Path returns the underlying configuration file path.
func (s *Store) Path() string {
	return s.base.Path()
}
