//go:build !cgo

package sqlitevec

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Available reports whether this build includes the sqlite-vec backend.
const Available = false

// ErrUnavailable is returned by New in builds without cgo.
var ErrUnavailable = errors.New("sqlite-vec backend requires a cgo build")

// Config configures the sqlite-vec index.
type Config struct {
	Dir     string
	MaxOpen int
}

// Index is a placeholder in builds without cgo.
type Index struct{}

// New always fails without cgo.
func New(Config, *zap.Logger) (*Index, error) {
	return nil, ErrUnavailable
}

func (*Index) Build(context.Context, domain.IndexManifest, []domain.IndexEntry) error {
	return ErrUnavailable
}

func (*Index) Search(context.Context, string, []float32, int) ([]domain.VectorHit, error) {
	return nil, ErrUnavailable
}

func (*Index) Persist(context.Context, string) error { return ErrUnavailable }
func (*Index) Load(context.Context, string) error    { return ErrUnavailable }

func (*Index) Manifest(context.Context, string) (*domain.IndexManifest, error) {
	return nil, ErrUnavailable
}

func (*Index) Delete(context.Context, string) error { return ErrUnavailable }
func (*Index) Close() error                         { return nil }

func (*Index) List(context.Context) ([]string, error) { return nil, ErrUnavailable }
