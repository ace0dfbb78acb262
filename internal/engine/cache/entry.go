package cache

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// Entry is one cached recommendation payload keyed by fingerprint.
//
//nolint:revive // Entry is the canonical name for this exported type.
type Entry struct {
	// Fingerprint is the content hash of the goals and client the
	// recommendations were generated for.
	Fingerprint string `json:"fingerprint"`

	// Recommendations is the opaque payload returned by the recommendation service.
	Recommendations json.RawMessage `json:"recommendations"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"createdAt"`

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time `json:"expiresAt"`

	// GoalsCount is the number of goals in the request.
	GoalsCount int `json:"goalsCount"`

	// ClientID identifies the client the entry belongs to.
	ClientID string `json:"clientId"`

	// SchemaVersion tags the payload shape; entries of another version are ignored.
	SchemaVersion string `json:"schemaVersion"`

	// FromCache is set on entries returned by Get. It is never persisted.
	FromCache bool `json:"-"`
}

var errCorruptEntry = errors.New("corrupt cache entry")

// NewEntry builds an entry created at now that lives for ttl.
func NewEntry(fp string, recs json.RawMessage, now time.Time, ttl time.Duration, goalsCount int, clientID, schema string) *Entry {
	return &Entry{
		Fingerprint:     fp,
		Recommendations: recs,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		GoalsCount:      goalsCount,
		ClientID:        clientID,
		SchemaVersion:   schema,
	}
}

// IsExpiredAt reports whether the entry must not be served at now. An entry
// whose ExpiresAt is not after its CreatedAt (a TTL of zero or less) is
// expired from the moment it is written.
func (e *Entry) IsExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt) || !e.ExpiresAt.After(e.CreatedAt)
}

// Age returns how long ago, relative to now, the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TimeUntilExpiration returns the remaining lifetime at now, or 0.
func (e *Entry) TimeUntilExpiration(now time.Time) time.Duration {
	if remaining := e.ExpiresAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// decodeEntry parses a stored entry and checks it was stored under
// fingerprint fp. Any problem yields errCorruptEntry.
func decodeEntry(raw, fp string) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, errors.Join(errCorruptEntry, err)
	}
	if e.Fingerprint != fp || len(e.Recommendations) == 0 || e.CreatedAt.IsZero() || e.ExpiresAt.IsZero() {
		return nil, errCorruptEntry
	}
	return &e, nil
}
