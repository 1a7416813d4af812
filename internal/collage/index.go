package collage

import (
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Index is the durable slug → remote-URL mapping for uploaded collages. It
// is read once at startup and rewritten whole after each successful upload.
// Concurrent writers can race on the file; the remote store's dedup-by-name
// check makes that race harmless.
type Index struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
}

// LoadIndex reads the index file. A missing or unreadable file yields an
// empty index rather than an error: the index is a cache, not a source of
// truth.
func LoadIndex(path string) *Index {
	idx := &Index{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("collage: read url index", zap.String("path", path), zap.Error(err))
		}
		return idx
	}
	if err := yaml.Unmarshal(data, &idx.entries); err != nil {
		zap.L().Warn("collage: parse url index", zap.String("path", path), zap.Error(err))
		idx.entries = make(map[string]string)
	}
	if idx.entries == nil {
		idx.entries = make(map[string]string)
	}
	return idx
}

// Get returns the remote URL recorded for the slug.
func (i *Index) Get(slug string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	url, ok := i.entries[slug]
	return url, ok
}

// Put records a remote URL and rewrites the whole index file.
func (i *Index) Put(slug, url string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[slug] = url

	data, err := yaml.Marshal(i.entries)
	if err != nil {
		return eris.Wrap(err, "collage: marshal url index")
	}
	if err := os.WriteFile(i.path, data, 0o644); err != nil {
		return eris.Wrap(err, "collage: write url index")
	}
	return nil
}

// Len reports how many slugs the index holds.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.entries)
}
