package pathmap

import (
	"fmt"
	"os"
	"strings"
)

// Mapping rewrites one container-internal prefix to a host prefix.
type Mapping struct {
	Container string
	Host      string
}

// Translator applies the configured path mappings and root rewrites.
type Translator struct {
	Mappings  []Mapping
	ArrayRoot string
	CacheRoot string
	// UnionRoot is the fuse mount that merges array and cache views
	// (/mnt/user on Unraid). Paths under it are ambiguous about which tier
	// actually holds the file.
	UnionRoot string
}

// New builds a Translator with trailing slashes stripped from every root and
// mapping so prefix matching stays exact.
func New(mappings []Mapping, arrayRoot, cacheRoot, unionRoot string) *Translator {
	cleaned := make([]Mapping, 0, len(mappings))
	for _, m := range mappings {
		src := strings.TrimRight(strings.TrimSpace(m.Container), "/")
		dst := strings.TrimRight(strings.TrimSpace(m.Host), "/")
		if src == "" {
			continue
		}
		cleaned = append(cleaned, Mapping{Container: src, Host: dst})
	}
	return &Translator{
		Mappings:  cleaned,
		ArrayRoot: strings.TrimRight(arrayRoot, "/"),
		CacheRoot: strings.TrimRight(cacheRoot, "/"),
		UnionRoot: strings.TrimRight(unionRoot, "/"),
	}
}

// ParseMappings parses the PLEX_PATH_MAP pair syntax: comma-separated
// "container=host" entries. Malformed entries are rejected rather than
// silently dropped so a typo surfaces at config load, not as a missed rewrite.
func ParseMappings(raw string) ([]Mapping, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var mappings []Mapping
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		src, dst, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(src) == "" {
			return nil, fmt.Errorf("path map entry %q: want container=host", pair)
		}
		mappings = append(mappings, Mapping{Container: src, Host: dst})
	}
	return mappings, nil
}

// Apply rewrites the first matching container prefix to its host prefix.
// Mappings are tried in configured order; a path with no match passes through
// unchanged, which is the common case for deployments where Plex already sees
// host paths.
func (t *Translator) Apply(path string) string {
	for _, m := range t.Mappings {
		if strings.HasPrefix(path, m.Container+"/") {
			return m.Host + strings.TrimPrefix(path, m.Container)
		}
	}
	return path
}

// NormalizeToArrayRoot collapses a union-mount path onto the array-only root
// so the mover addresses the disk view rather than the fuse view. Idempotent:
// paths already outside the union root are returned unchanged.
func (t *Translator) NormalizeToArrayRoot(path string) string {
	if t.UnionRoot != "" && strings.HasPrefix(path, t.UnionRoot+"/") {
		return t.ArrayRoot + strings.TrimPrefix(path, t.UnionRoot)
	}
	return path
}

// ToHostArrayPath is the promote-side output transform: container prefix to
// host, then union mount to array root.
func (t *Translator) ToHostArrayPath(path string) string {
	return t.NormalizeToArrayRoot(t.Apply(path))
}

// DeriveCachePath finds the cache-tier copy of hostPath, trying in order: the
// path already under the cache root, the array-root path rewritten to cache,
// and the union-mount path rewritten to cache. Returns the first candidate
// that exists as a regular file, or "" when the file is not materialized on
// cache.
func (t *Translator) DeriveCachePath(hostPath string) string {
	var candidates []string
	if strings.HasPrefix(hostPath, t.CacheRoot+"/") {
		candidates = append(candidates, hostPath)
	}
	if t.ArrayRoot != "" && strings.HasPrefix(hostPath, t.ArrayRoot+"/") {
		candidates = append(candidates, t.CacheRoot+strings.TrimPrefix(hostPath, t.ArrayRoot))
	}
	if t.UnionRoot != "" && strings.HasPrefix(hostPath, t.UnionRoot+"/") {
		candidates = append(candidates, t.CacheRoot+strings.TrimPrefix(hostPath, t.UnionRoot))
	}
	for _, candidate := range candidates {
		if !strings.HasPrefix(candidate, t.CacheRoot+"/") {
			continue
		}
		if isRegularFile(candidate) {
			return candidate
		}
	}
	return ""
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
