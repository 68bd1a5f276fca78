package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Presence marks a row as either active or soft-deleted at a point in time.
// The zero value is active.
type Presence struct {
	at      time.Time
	deleted bool
}

// Active returns the marker of a live row.
func Active() Presence { return Presence{} }

// Deleted returns the marker of a row soft-deleted at t.
func Deleted(t time.Time) Presence { return Presence{at: t.UTC(), deleted: true} }

// IsDeleted reports whether the row is soft-deleted.
func (p Presence) IsDeleted() bool { return p.deleted }

// DeletedAt returns the deletion time and true, or the zero time and false for
// an active row.
func (p Presence) DeletedAt() (time.Time, bool) { return p.at, p.deleted }

// sqliteLayouts are the text forms mattn/go-sqlite3 may hand back for a
// timestamp column.
var sqliteLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Scan implements sql.Scanner. NULL scans as Active.
func (p *Presence) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Active()
		return nil
	case time.Time:
		*p = Deleted(v)
		return nil
	case string:
		return p.scanText(v)
	case []byte:
		return p.scanText(string(v))
	default:
		return fmt.Errorf("presence: cannot scan %T", src)
	}
}

func (p *Presence) scanText(s string) error {
	for _, layout := range sqliteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*p = Deleted(t)
			return nil
		}
	}
	return fmt.Errorf("presence: unparseable timestamp %q", s)
}

// Value implements driver.Valuer. Active is stored as NULL.
func (p Presence) Value() (driver.Value, error) {
	if !p.deleted {
		return nil, nil
	}
	return p.at, nil
}

// GormDataType lets gorm migrate the column as a timestamp.
func (Presence) GormDataType() string { return "time" }

// MarshalJSON encodes Active as null and Deleted as its timestamp.
func (p Presence) MarshalJSON() ([]byte, error) {
	if !p.deleted {
		return []byte("null"), nil
	}
	return json.Marshal(p.at)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Presence) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Active()
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("presence: %w", err)
	}
	*p = Deleted(t)
	return nil
}
