package workspace

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"texel/internal/index"
)

// Current schema version - increment when cachePayload format changes
const cacheSchemaVersion uint16 = 1

// Cache stores extracted index slices on disk keyed by content hash, so
// re-opening an unchanged document skips extraction entirely.
// Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema  uint16
	Records []index.Record
}

// OpenCache initializes the cache at the standard XDG location.
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app, "index")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// OpenCacheAt uses an explicit directory (tests, --cache-dir).
func OpenCacheAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key [32]byte) string {
	return filepath.Join(c.dir, hex.EncodeToString(key[:])+".mp")
}

// Put serializes a document's records. Failures are swallowed: the
// cache is an accelerator, never a source of truth.
func (c *Cache) Put(key [32]byte, recs []index.Record) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return
	}
	name := f.Name()
	enc := msgpack.NewEncoder(f)
	encErr := enc.Encode(cachePayload{Schema: cacheSchemaVersion, Records: recs})
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		_ = os.Remove(name)
		return
	}
	// атомарная замена
	if err := os.Rename(name, p); err != nil {
		_ = os.Remove(name)
	}
}

// Get loads cached records for a content hash.
func (c *Cache) Get(key [32]byte) ([]index.Record, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false
	}
	if payload.Schema != cacheSchemaVersion {
		return nil, false
	}
	return payload.Records, true
}
