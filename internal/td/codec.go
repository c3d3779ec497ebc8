package td

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	ErrMissingType = errors.New("td: message has no @type")
	ErrMalformed   = errors.New("td: malformed message")
)

const typeKey = "@type"

// Encode renders a request in the engine's JSON wire format. Type always
// wins over an "@type" entry in Fields.
func Encode(req Request) ([]byte, error) {
	if req.Type == "" {
		return nil, ErrMissingType
	}
	obj := make(map[string]any, len(req.Fields)+1)
	for k, v := range req.Fields {
		obj[k] = v
	}
	obj[typeKey] = req.Type
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.Type, err)
	}
	return data, nil
}

// Decode parses engine output. Empty output is the receive-timeout case and
// returns a nil event with no error.
func Decode(raw []byte) (*Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}

	typ, ok := obj[typeKey].(string)
	if !ok || typ == "" {
		return nil, ErrMissingType
	}
	delete(obj, typeKey)

	return &Event{
		Type:    typ,
		Payload: obj,
		Raw:     append([]byte(nil), trimmed...),
	}, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
