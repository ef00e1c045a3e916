package index

// DocumentIndex defines the interface for index operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with fakes.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string, links []string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ListDocuments(limit, offset int, tag string) ([]DocumentRow, int, error)
	PublishedPaths() ([]string, error)
	Contains(path string) bool
	Backlinks(target string) ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
