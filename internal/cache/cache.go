// Package cache implements the Project Cache (§4.4): it persists
// fingerprints of each input — compiler identity, manifest content hash,
// per-source-file hashes, and a target's accumulated flags/defines/
// dependency ids — under <build_root>/cache/ so a re-invocation can detect
// "nothing changed" and skip regeneration. The three-sub-store layout and
// the record bookkeeping are adapted from the teacher's
// internal/cache.Cache, with two deliberate departures: records are
// per-entry files (one per manifest/target, as §6.4 requires) rather than
// one shared metadata.json, and there is no TTL/expiry — a cache entry goes
// stale when its recomputed hash differs from the stored one, not when a
// clock says so.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/oarkflow/yambs/internal/parallel"
	"github.com/oarkflow/yambs/internal/yambserr"
)

// Key derives a cache filename from arbitrary parts. Per the binding
// decision on the cache-key Open Question (SPEC_FULL.md §9), this is the
// full lowercase-hex SHA-256 digest — 256 bits, well over the required
// 128-bit collision-resistance floor — and is never truncated.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashFile returns the SHA-256 hex digest of one file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFiles hashes every path concurrently with a small bounded worker pool
// (see internal/parallel), then returns a path->hash map. Hashing many
// independent files has no ordering requirement of its own; the caller is
// responsible for folding the results back in a deterministic order (e.g.
// sorted by path) before using them to compute a combined fingerprint, so
// this concurrency never leaks into the resolver/generator's required
// determinism.
func HashFiles(paths []string) (map[string]string, error) {
	type pair struct {
		path string
		hash string
	}
	results, err := parallel.Map(context.Background(), paths, func(_ context.Context, p string) (pair, error) {
		h, err := HashFile(p)
		return pair{path: p, hash: h}, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(results))
	for _, r := range results {
		out[r.path] = r.hash
	}
	return out, nil
}

// CompilerRecord is the cache/compiler sub-store's single entry.
type CompilerRecord struct {
	Path    string `yaml:"path"`
	Family  string `yaml:"family"`
	Version string `yaml:"version"`
}

// ManifestRecord is one cache/manifest/<hash> entry: the content hash of
// the manifest itself, plus the hash of every source file it enumerates.
type ManifestRecord struct {
	ManifestPath string            `yaml:"manifest_path"`
	ManifestHash string            `yaml:"manifest_hash"`
	SourceHashes map[string]string `yaml:"source_hashes"`
}

// TargetRecord is one cache/targets/<tid> entry: the inputs that produced a
// target's generated makefile fragment.
type TargetRecord struct {
	TargetId     string            `yaml:"target_id"`
	Flags        []string          `yaml:"flags"`
	CFlags       []string          `yaml:"cflags"`
	Defines      map[string]string `yaml:"defines"`
	Dependencies []string          `yaml:"dependencies"`
}

// ProjectCache is the on-disk cache rooted at <build_root>/cache/.
type ProjectCache struct {
	dir string
}

// Open creates (if needed) the three sub-stores under buildRoot/cache and
// returns a handle to them.
func Open(buildRoot string) (*ProjectCache, error) {
	dir := filepath.Join(buildRoot, "cache")
	for _, sub := range []string{"compiler", "manifest", "targets"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, yambserr.Wrap(yambserr.Io, err, "creating cache directory %s", sub)
		}
	}
	return &ProjectCache{dir: dir}, nil
}

func (c *ProjectCache) compilerPath() string {
	return filepath.Join(c.dir, "compiler", "compiler.yaml")
}

func (c *ProjectCache) manifestPath(manifestAbsPath string) string {
	return filepath.Join(c.dir, "manifest", Key(manifestAbsPath)+".yaml")
}

func (c *ProjectCache) targetPath(targetId string) string {
	return filepath.Join(c.dir, "targets", Key(targetId)+".yaml")
}

// PutCompiler overwrites the cached compiler identity.
func (c *ProjectCache) PutCompiler(rec CompilerRecord) error {
	return writeYAML(c.compilerPath(), rec)
}

// GetCompiler returns the cached compiler identity, if present and
// readable; a corrupt or missing record is treated as a miss (§7: "Cache
// corruption is recovered from locally by ignoring the corrupt entry").
func (c *ProjectCache) GetCompiler() (CompilerRecord, bool) {
	var rec CompilerRecord
	ok := readYAML(c.compilerPath(), &rec)
	return rec, ok
}

// PutManifest stores a manifest's fingerprint.
func (c *ProjectCache) PutManifest(rec ManifestRecord) error {
	return writeYAML(c.manifestPath(rec.ManifestPath), rec)
}

// GetManifest returns the cached fingerprint for manifestAbsPath, if any.
func (c *ProjectCache) GetManifest(manifestAbsPath string) (ManifestRecord, bool) {
	var rec ManifestRecord
	ok := readYAML(c.manifestPath(manifestAbsPath), &rec)
	return rec, ok
}

// PutTarget stores a target's generation fingerprint.
func (c *ProjectCache) PutTarget(rec TargetRecord) error {
	return writeYAML(c.targetPath(rec.TargetId), rec)
}

// GetTarget returns the cached fingerprint for targetId, if any.
func (c *ProjectCache) GetTarget(targetId string) (TargetRecord, bool) {
	var rec TargetRecord
	ok := readYAML(c.targetPath(targetId), &rec)
	return rec, ok
}

// Clear removes every cached entry.
func (c *ProjectCache) Clear() error {
	for _, sub := range []string{"compiler", "manifest", "targets"} {
		entries, err := os.ReadDir(filepath.Join(c.dir, sub))
		if err != nil {
			continue
		}
		for _, e := range entries {
			os.Remove(filepath.Join(c.dir, sub, e.Name()))
		}
	}
	return nil
}

// Prune removes manifest records whose source manifest no longer exists on
// disk, and manifest records that cannot be read — the content-hash
// equivalent of the teacher's expiry-based prune, since this cache has no
// TTL. Compiler and target records are left in place.
func (c *ProjectCache) Prune() error {
	entries, err := os.ReadDir(filepath.Join(c.dir, "manifest"))
	if err != nil {
		return nil
	}
	removed := 0
	for _, e := range entries {
		var rec ManifestRecord
		full := filepath.Join(c.dir, "manifest", e.Name())
		if !readYAML(full, &rec) {
			os.Remove(full)
			removed++
			continue
		}
		if _, err := os.Stat(rec.ManifestPath); err != nil {
			os.Remove(full)
			removed++
		}
	}
	log.Debug("cache prune complete", "removed", removed)
	return nil
}

// Stats summarizes the cache for `yambs cache stats`.
func (c *ProjectCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{"cache_dir": c.dir}
	var total int64
	for _, sub := range []string{"compiler", "manifest", "targets"} {
		entries, _ := os.ReadDir(filepath.Join(c.dir, sub))
		stats[sub+"_entries"] = len(entries)
		for _, e := range entries {
			if info, err := e.Info(); err == nil {
				total += info.Size()
			}
		}
	}
	stats["size_bytes"] = total
	return stats
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return yambserr.Wrap(yambserr.Io, err, "encoding cache record")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return yambserr.Wrap(yambserr.Io, err, "writing cache record %s", path)
	}
	return nil
}

func readYAML(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		log.Debug("ignoring corrupt cache entry", "path", path, "error", err)
		return false
	}
	return true
}

// SortedKeys is a small helper callers use to fold a HashFiles result back
// into deterministic order before hashing it into a combined fingerprint.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CombinedHash hashes a manifest's own content hash together with its
// source file hashes in sorted-path order, giving a single fingerprint
// that changes if the manifest or any of its sources change.
func CombinedHash(manifestContentHash string, sourceHashes map[string]string) string {
	keys := SortedKeys(sourceHashes)
	parts := make([]string, 0, len(keys)*2+1)
	parts = append(parts, manifestContentHash)
	for _, k := range keys {
		parts = append(parts, k, sourceHashes[k])
	}
	return Key(parts...)
}
