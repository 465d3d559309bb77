package index

// RecordIndex is the search projection over all collections. Consumers
// depend on this interface rather than *DB.
type RecordIndex interface {
	ReplaceKind(kind, checksum string, rows []RecordRow) error
	DeleteKind(kind string) error
	KindChecksum(kind string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ RecordIndex = (*DB)(nil)
