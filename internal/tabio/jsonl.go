package tabio

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSONLines emits one JSON document per record, newline-delimited, for
// the dashboard's streaming feed.
func WriteJSONLines[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}
