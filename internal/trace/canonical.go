package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders a trace as canonical JSON: one event object per
// line, keys sorted, strings NFC-normalized, no HTML escaping. Two runs that
// fired the same listeners in the same order produce identical bytes, which
// is what golden files compare.
func MarshalCanonical(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, e := range events {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		if err := writeCanonical(&buf, e.fields()); err != nil {
			return nil, fmt.Errorf("event %d: %w", e.Seq, err)
		}
	}
	if len(events) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

// MarshalEvent renders a single event the way MarshalCanonical renders each
// line. The result decodes back into an Event with encoding/json.
func MarshalEvent(e Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, e.fields()); err != nil {
		return nil, fmt.Errorf("event %d: %w", e.Seq, err)
	}
	return buf.Bytes(), nil
}

// fields lists the populated fields of e for its type.
func (e Event) fields() map[string]any {
	m := map[string]any{"seq": e.Seq, "type": e.Type, "step": e.Step}
	switch e.Type {
	case TypeMove:
		m["label"] = e.Label
	case TypeFired:
		m["listener"] = e.Listener
		m["global_order"] = e.GlobalOrder
		m["kind"] = e.Kind
		m["entity"] = e.Entity
		m["notification"] = e.Notification
	case TypeTrigger:
		m["fired"] = e.Fired
	case TypeDemand:
		m["demand"] = e.Demand
		m["cached"] = e.Cached
	}
	return m
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case string:
		return writeString(buf, val)
	case int:
		fmt.Fprintf(buf, "%d", val)
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case []any:
		buf.WriteString("[")
		for i, elem := range val {
			if i > 0 {
				buf.WriteString(",")
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteString("]")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(",")
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteString(":")
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		buf.WriteString("}")
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
