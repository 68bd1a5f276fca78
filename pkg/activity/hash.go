package activity

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// computeHash computes a SHA-256 hash for chain integrity.
func computeHash(prevHash, id, eventType, source, entity string, entityID int64, timestamp time.Time, contentJSON []byte) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%s",
		prevHash, id, eventType, source, entity, entityID, timestamp.UnixNano(), string(contentJSON))
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h)
}

// chainVerifier checks events one at a time in chronological order.
type chainVerifier struct {
	prevHash string
	n        int
}

// check verifies e against the chain so far. raw is the content exactly as
// stored; a re-marshal of the decoded content is accepted as well.
func (v *chainVerifier) check(e *Event, raw []byte) error {
	if e.PrevHash != v.prevHash {
		return fmt.Errorf("event %d (%s): prev_hash mismatch: got %s, want %s", v.n, e.ID, e.PrevHash, v.prevHash)
	}
	expected := computeHash(v.prevHash, e.ID, e.Type, e.Source, e.Entity, e.EntityID, e.Timestamp, raw)
	if e.Hash != expected {
		remarshal, _ := json.Marshal(e.Content)
		expected2 := computeHash(v.prevHash, e.ID, e.Type, e.Source, e.Entity, e.EntityID, e.Timestamp, remarshal)
		if e.Hash != expected2 {
			return fmt.Errorf("event %d (%s): hash mismatch: got %s, want raw=%s or remarshal=%s", v.n, e.ID, e.Hash, expected, expected2)
		}
	}
	v.prevHash = e.Hash
	v.n++
	return nil
}

// seal fills in ID-independent fields of a new event and computes its hash.
// stamp gives e its id and commit time. Callers hold the chain lock, and the
// time never runs behind the head e will link to.
func stamp(e *Event, head time.Time) {
	e.ID = uuid.Must(uuid.NewV7()).String()
	e.Timestamp = time.Now().UTC().Truncate(time.Microsecond)
	if e.Timestamp.Before(head) {
		e.Timestamp = head.UTC()
	}
}

func seal(e *Event, prevHash string, contentJSON []byte) {
	e.PrevHash = prevHash
	e.Hash = computeHash(prevHash, e.ID, e.Type, e.Source, e.Entity, e.EntityID, e.Timestamp, contentJSON)
}

func marshalContent(content map[string]any) (map[string]any, []byte, error) {
	if content == nil {
		content = map[string]any{}
	}
	b, err := json.Marshal(content)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal content: %w", err)
	}
	return content, b, nil
}
