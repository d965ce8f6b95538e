// Package buildcache implements the build-cache manager of spec.md
// §4.K: per-session dispatch-table caching with file-hash/mtime
// dependency invalidation, atomic on-disk writes, and size/age-bounded
// cleanup.
//
// Grounded on the teacher's internal/module/loader.go, whose Loader
// holds a mutex-guarded in-memory cache keyed by module identity, and
// internal/manifest/manifest.go, whose Manifest is a schema-versioned
// record persisted as JSON -- combined here into a session-scoped cache
// of compressed dispatch tables, each table keyed by a canonical
// signature_name + type-signature serialization and persisted with the
// teacher's schema-versioning convention.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/janus-lang/janus-sub003/internal/compress"
)

// SchemaVersion is the cache record schema tag, per the teacher's
// manifest.SchemaVersion convention.
const SchemaVersion = "janus.dispatch.cache/v1"

// Config governs cache cleanup, per spec.md §4.K.
type Config struct {
	CacheDir                 string
	MaxCacheSizeBytes        int64
	MaxCacheAgeSeconds        int64
	EnableCompression        bool
	EnableIncrementalUpdates bool
	CleanupIntervalSeconds   int64
}

// DefaultConfig returns reasonable defaults grounded on the teacher's
// manifest/cache conventions.
func DefaultConfig(cacheDir string) Config {
	return Config{
		CacheDir:                 cacheDir,
		MaxCacheSizeBytes:        256 * 1024 * 1024,
		MaxCacheAgeSeconds:       30 * 24 * 3600,
		EnableCompression:        true,
		EnableIncrementalUpdates: true,
		CleanupIntervalSeconds:   24 * 3600,
	}
}

// Record is the on-disk cache entry for one compressed dispatch table.
type Record struct {
	Schema     string          `json:"schema"`
	CacheKey   string          `json:"cache_key"`
	Table      *compress.Table `json:"table"`
	WrittenAt  int64           `json:"written_at"`
}

// DependencyState is the tracked (mtime, content_hash) pair for one
// dependency file, per spec.md §4.K validate_dependencies.
type DependencyState struct {
	ModTime     int64
	ContentHash string
}

// SessionMetrics is the summary produced at end_session (spec.md §4.K).
type SessionMetrics struct {
	TablesFromCache  int
	TablesBuiltFresh int
	TablesOptimized  int
	CacheHitRatio    float64
	BuildSpeedupRatio float64
}

// BuildFunc constructs a dispatch table fresh when no cache entry hits.
type BuildFunc func() *compress.Table

// Manager is the session-scoped build cache, mutex-guarded like the
// teacher's Loader so a single session's concurrent callers are safe
// even though spec.md §5 forbids sharing a Manager across sessions.
type Manager struct {
	mu sync.Mutex

	config Config

	sessionTables map[string]*compress.Table
	newlyBuilt    map[string]*compress.Table

	deps map[string]DependencyState

	metrics SessionMetrics

	lastCleanup time.Time
}

// New creates a Manager bound to config.
func New(config Config) *Manager {
	return &Manager{config: config, deps: make(map[string]DependencyState)}
}

// StartSession resets per-session state and runs cleanup if the
// configured interval has elapsed (spec.md §4.K start_session).
func (m *Manager) StartSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionTables = make(map[string]*compress.Table)
	m.newlyBuilt = make(map[string]*compress.Table)
	m.metrics = SessionMetrics{}

	if m.config.CleanupIntervalSeconds > 0 && time.Since(m.lastCleanup).Seconds() >= float64(m.config.CleanupIntervalSeconds) {
		_ = m.Cleanup()
	}
}

// CacheKey computes the cache key for signatureName and a canonical
// type-signature serialization (spec.md §4.K step 2).
func CacheKey(signatureName, typeSignature string) string {
	h := sha256.Sum256([]byte(signatureName + "\x00" + typeSignature))
	return hex.EncodeToString(h[:])
}

// GetOrBuildDispatchTable implements spec.md §4.K get_or_build_dispatch_table.
func (m *Manager) GetOrBuildDispatchTable(name, typeSignature string, build BuildFunc) *compress.Table {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := CacheKey(name, typeSignature)

	if table, ok := m.sessionTables[key]; ok {
		return table
	}

	if table, ok := m.readFromDisk(key); ok {
		m.sessionTables[key] = table
		m.metrics.TablesFromCache++
		return table
	}

	table := build()
	m.sessionTables[key] = table
	m.newlyBuilt[key] = table
	m.metrics.TablesBuiltFresh++
	if m.config.EnableCompression {
		m.metrics.TablesOptimized++
	}
	return table
}

func (m *Manager) recordPath(key string) string {
	return filepath.Join(m.config.CacheDir, key+".json")
}

func (m *Manager) readFromDisk(key string) (*compress.Table, bool) {
	data, err := os.ReadFile(m.recordPath(key))
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	return rec.Table, true
}

// ValidateDependencies implements spec.md §4.K validate_dependencies: for
// each dependency compute the current (mtime, content_hash); changed or
// missing files are reported as invalidated and the tracker is updated.
func (m *Manager) ValidateDependencies(deps []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var invalidated []string
	for _, dep := range deps {
		current, err := statState(dep)
		if err != nil {
			invalidated = append(invalidated, dep)
			delete(m.deps, dep)
			continue
		}
		if prev, ok := m.deps[dep]; !ok || prev != current {
			invalidated = append(invalidated, dep)
		}
		m.deps[dep] = current
	}
	return invalidated
}

func statState(path string) (DependencyState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DependencyState{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DependencyState{}, err
	}
	h := sha256.Sum256(data)
	return DependencyState{ModTime: info.ModTime().Unix(), ContentHash: hex.EncodeToString(h[:])}, nil
}

// EndSession writes every newly built table to the cache with an atomic
// temp-then-rename write, updates cache_hit_ratio and
// build_speedup_ratio, and records the current time in memory as the
// last-cleanup time that StartSession checks. That timestamp is not
// written to disk, so a new Manager starts with no record of earlier
// cleanups.
func (m *Manager) EndSession() (SessionMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.config.CacheDir, 0o755); err != nil {
		return m.metrics, err
	}

	for key, table := range m.newlyBuilt {
		rec := Record{Schema: SchemaVersion, CacheKey: key, Table: table, WrittenAt: time.Now().Unix()}
		if err := writeAtomic(m.recordPath(key), rec); err != nil {
			return m.metrics, err
		}
	}

	total := m.metrics.TablesFromCache + m.metrics.TablesBuiltFresh
	if total > 0 {
		m.metrics.CacheHitRatio = float64(m.metrics.TablesFromCache) / float64(total)
	}
	if m.metrics.TablesBuiltFresh > 0 {
		m.metrics.BuildSpeedupRatio = float64(m.metrics.TablesFromCache) / float64(m.metrics.TablesBuiltFresh)
	}

	m.lastCleanup = time.Now()
	return m.metrics, nil
}

func writeAtomic(path string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Cleanup evicts the oldest cache files first until both the size and
// age limits are satisfied (spec.md §4.K cache cleanup).
func (m *Manager) Cleanup() error {
	entries, err := os.ReadDir(m.config.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var totalSize int64
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(m.config.CacheDir, entry.Name())
		age := now.Sub(info.ModTime()).Seconds()
		if m.config.MaxCacheAgeSeconds > 0 && age >= float64(m.config.MaxCacheAgeSeconds) {
			if err := os.Remove(path); err != nil {
				return err
			}
			continue
		}
		files = append(files, fileInfo{path: path, size: info.Size(), modTime: info.ModTime()})
		totalSize += info.Size()
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for _, f := range files {
		if m.config.MaxCacheSizeBytes <= 0 || totalSize <= m.config.MaxCacheSizeBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			return err
		}
		totalSize -= f.size
	}
	return nil
}
