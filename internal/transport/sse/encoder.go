package sse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
)

// MarshalFrame encodes ev as one delimited wire frame: "data: {...}\n\n".
func MarshalFrame(ev event.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	kind, err := json.Marshal(string(ev.Kind()))
	if err != nil {
		return nil, fmt.Errorf("marshal event kind: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(kind) + 16)
	buf.WriteString(DataPrefix + " ")
	buf.WriteString(`{"type":`)
	buf.Write(kind)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteString("}\n\n")
	return buf.Bytes(), nil
}
