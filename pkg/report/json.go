package report

import "encoding/json"

// RenderJSON encodes rows as a JSON array. No rows encode as [].
func RenderJSON(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(rows)
}
