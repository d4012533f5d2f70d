package driven

// ConfigStore reads and writes dotted configuration keys such as
// "rag.chunk_size". The typed getters return the zero value when a key is
// missing or holds another type; GetFloat also accepts integers.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Save writes every value; Load rereads what was persisted.
	Save() error
	Load() error

	// Path names where the store persists.
	Path() string
}
