package cache

import (
	"cmp"
	"slices"
	"time"

	"github.com/goccy/go-json"
)

// IndexRecord is the index's view of one stored entry.
type IndexRecord struct {
	StorageKey string    `json:"storageKey"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// MetadataIndex tracks every entry the cache wrote so that eviction scans
// do not have to read payloads. Between cleanups it may point at keys that
// no longer exist; Cleanup reconciles it with the store.
type MetadataIndex struct {
	Entries       map[string]IndexRecord `json:"entries"`
	LastCleanupAt time.Time              `json:"lastCleanupAt"`
}

func newIndex() *MetadataIndex {
	return &MetadataIndex{Entries: make(map[string]IndexRecord)}
}

func decodeIndex(raw string) (*MetadataIndex, error) {
	idx := newIndex()
	if err := json.Unmarshal([]byte(raw), idx); err != nil {
		return nil, err
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]IndexRecord)
	}
	return idx, nil
}

func (idx *MetadataIndex) encode() (string, error) {
	b, err := json.Marshal(idx)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// expiredAt returns the fingerprints whose records are expired at now,
// sorted for deterministic removal.
func (idx *MetadataIndex) expiredAt(now time.Time) []string {
	var out []string
	for fp, rec := range idx.Entries {
		if now.After(rec.ExpiresAt) || !rec.ExpiresAt.After(rec.CreatedAt) {
			out = append(out, fp)
		}
	}
	slices.Sort(out)
	return out
}

// oldest returns the n oldest fingerprints by CreatedAt; equal timestamps
// are ordered by fingerprint ascending.
func (idx *MetadataIndex) oldest(n int) []string {
	if n <= 0 {
		return nil
	}
	fps := make([]string, 0, len(idx.Entries))
	for fp := range idx.Entries {
		fps = append(fps, fp)
	}
	slices.SortFunc(fps, func(a, b string) int {
		return cmp.Or(idx.Entries[a].CreatedAt.Compare(idx.Entries[b].CreatedAt), cmp.Compare(a, b))
	})
	if n > len(fps) {
		n = len(fps)
	}
	return fps[:n]
}
