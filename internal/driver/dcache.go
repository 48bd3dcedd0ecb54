package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"bitspec/internal/diag"
	"bitspec/internal/layout"
	"bitspec/internal/project"
	"bitspec/internal/source"
	"bitspec/internal/version"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache хранит результаты проверки схем на диске, по хешу содержимого.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is what a check of one schema file leaves behind.
// Spans are stored without a FileID and rebound on load.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Path        string
	ContentHash project.Digest
	Target      string

	Containers  int
	Diagnostics []CachedDiagnostic
}

// CachedDiagnostic is a diag.Diagnostic detached from its FileSet.
type CachedDiagnostic struct {
	Code       uint16
	Message    string
	Start, End uint32
	Node       string
	Directives []string
	Notes      []CachedNote
}

// CachedNote is a diag.Note detached from its FileSet.
type CachedNote struct {
	Start, End uint32
	Msg        string
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens (creating if needed) a cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// CacheKey identifies a check result: the file content, the target it was
// resolved for and the tool that produced it.
func CacheKey(file *source.File, target layout.Target) project.Digest {
	return project.Combine(project.Digest(file.Hash), target.Name, version.Version, fmt.Sprint(diskCacheSchemaVersion))
}

func (c *DiskCache) pathFor(key project.Digest) string {
	// Результаты лежат в подкаталоге "checks", его проще чистить.
	return filepath.Join(c.dir, "checks", key.Hex()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) (err error) {
	if c == nil || payload == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload from the disk cache. Entries written by
// another format version are reported as misses.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("corrupt cache entry %s: %w", key.Hex(), err)
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// toDiskPayload detaches a finished check from its FileSet.
func toDiskPayload(file *source.File, target layout.Target, containers int, bag *diag.Bag) *DiskPayload {
	payload := &DiskPayload{
		Schema:      diskCacheSchemaVersion,
		Path:        file.Path,
		ContentHash: project.Digest(file.Hash),
		Target:      target.Name,
		Containers:  containers,
		Diagnostics: make([]CachedDiagnostic, 0, bag.Len()),
	}
	for _, d := range bag.Items() {
		cd := CachedDiagnostic{
			Code:       uint16(d.Code),
			Message:    d.Message,
			Start:      d.Primary.Start,
			End:        d.Primary.End,
			Node:       d.Node,
			Directives: d.Directives,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
		}
		payload.Diagnostics = append(payload.Diagnostics, cd)
	}
	return payload
}

// bagFromPayload rebinds cached diagnostics to file id.
func bagFromPayload(payload *DiskPayload, id source.FileID) *diag.Bag {
	bag := diag.NewBag(len(payload.Diagnostics))
	for _, cd := range payload.Diagnostics {
		span := source.Span{File: id, Start: cd.Start, End: cd.End}
		d := diag.New(diag.Code(cd.Code), span, cd.Node, cd.Message)
		if len(cd.Directives) > 0 {
			d = d.WithDirectives(cd.Directives...)
		}
		for _, n := range cd.Notes {
			d = d.WithNote(source.Span{File: id, Start: n.Start, End: n.End}, n.Msg)
		}
		bag.Add(d)
	}
	return bag
}
