package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MetricReading is a named metric value as submitted: a scalar or a sequence of scalars.
type MetricReading struct {
	Name  string
	Value any
}

// Metrics holds metric readings in submission order. Its JSON form is an object
// keyed by metric name; decoding preserves key order.
type Metrics []MetricReading

// UnmarshalJSON decodes a JSON object while keeping its key order. Numbers are
// kept as json.Number so integer and float readings stay exact.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode metrics: expected object, got %v", tok)
	}

	readings := make(Metrics, 0)
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode metrics: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode metrics: unexpected key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode metric %s: %w", key, err)
		}
		// Duplicate keys keep their first position and the last value, like a map.
		if i, seen := index[key]; seen {
			readings[i].Value = value
			continue
		}
		index[key] = len(readings)
		readings = append(readings, MetricReading{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}

	*m = readings
	return nil
}

// MarshalJSON encodes the readings as a JSON object in their stored order.
func (m Metrics) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.Value)
		if err != nil {
			return nil, fmt.Errorf("encode metric %s: %w", r.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
