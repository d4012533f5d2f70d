package vector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// IndicesDir is the directory under the storage root holding index artifacts.
const IndicesDir = "indices"

// Extension is the file extension of an index artifact.
const Extension = ".index"

// ArtifactPath returns the artifact path for docID under dir. Document ids
// that could escape dir are rejected with domain.ErrInvalidInput.
func ArtifactPath(dir, docID string) (string, error) {
	if docID == "" || docID != filepath.Base(docID) || strings.HasPrefix(docID, ".") {
		return "", fmt.Errorf("%w: invalid document id %q", domain.ErrInvalidInput, docID)
	}
	return filepath.Join(dir, docID+Extension), nil
}

// DocIDFromArtifact returns the document id for an artifact file name, or
// false if name is not an index artifact.
func DocIDFromArtifact(name string) (string, bool) {
	if !strings.HasSuffix(name, Extension) {
		return "", false
	}
	id := strings.TrimSuffix(name, Extension)
	return id, id != ""
}

// ListArtifacts returns the document ids of every persisted artifact in dir,
// sorted. A missing dir holds no artifacts.
func ListArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := DocIDFromArtifact(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
