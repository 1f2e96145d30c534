// Package timex provides a JSON-friendly wrapper around time.Duration so
// config files can express intervals either as human strings ("3s", "1m")
// or as raw integer nanoseconds.
package timex

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration marshals/unmarshals as a Go duration string in JSON, falling
// back to a bare number of nanoseconds for compatibility with configs that
// emit integers.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x)
		return nil
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("timex: invalid duration value")
	}
}
