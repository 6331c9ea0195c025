package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// jsonReader streams the elements of a top level array, or of the "data" array of
// a top level object. Each element must be a flat object.
type jsonReader struct {
	dec     *json.Decoder
	headers []string
	pending map[string]string
	row     int
	done    bool
}

func newJSONReader(r io.Reader) (*jsonReader, error) {
	dec := json.NewDecoder(r)
	if err := seekRecords(dec); err != nil {
		return nil, err
	}

	reader := &jsonReader{dec: dec}
	keys, values, err := reader.readObject()
	if errors.Is(err, io.EOF) {
		reader.done = true
		reader.headers = []string{}
		return reader, nil
	}
	if err != nil {
		return nil, err
	}
	reader.headers = keys
	reader.pending = values
	return reader, nil
}

// seekRecords positions dec right after the opening bracket of the records array.
func seekRecords(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return newFormatError("json: %v", err)
	}
	switch tok {
	case json.Delim('['):
		return nil
	case json.Delim('{'):
	default:
		return newFormatError("json: expected an array or an object with a data array")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return newFormatError("json: %v", err)
		}
		key, _ := keyTok.(string)
		if key != "data" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return newFormatError("json: %v", err)
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return newFormatError("json: %v", err)
		}
		if tok != json.Delim('[') {
			return newFormatError("json: data must be an array")
		}
		return nil
	}
	return newFormatError("json: object has no data array")
}

func (j *jsonReader) Headers() []string {
	return j.headers
}

func (j *jsonReader) Next() (Record, error) {
	var values map[string]string
	if j.pending != nil {
		values, j.pending = j.pending, nil
	} else {
		if j.done {
			return Record{}, io.EOF
		}
		var err error
		_, values, err = j.readObject()
		if err != nil {
			return Record{}, err
		}
	}
	j.row++
	row := make([]string, len(j.headers))
	for i, h := range j.headers {
		row[i] = values[h]
	}
	return NewRecord(j.row, j.headers, row), nil
}

func (j *jsonReader) Close() error {
	return nil
}

// readObject decodes the next array element, keeping the key order.
func (j *jsonReader) readObject() ([]string, map[string]string, error) {
	if !j.dec.More() {
		// consume the closing bracket
		if _, err := j.dec.Token(); err != nil {
			return nil, nil, newFormatError("json: %v", err)
		}
		j.done = true
		return nil, nil, io.EOF
	}

	tok, err := j.dec.Token()
	if err != nil {
		return nil, nil, newFormatError("json: %v", err)
	}
	if tok != json.Delim('{') {
		return nil, nil, newFormatError("json: record %d is not an object", j.row+1)
	}

	var keys []string
	values := map[string]string{}
	for j.dec.More() {
		keyTok, err := j.dec.Token()
		if err != nil {
			return nil, nil, newFormatError("json: %v", err)
		}
		key, _ := keyTok.(string)
		key = strings.TrimSpace(key)
		var raw json.RawMessage
		if err := j.dec.Decode(&raw); err != nil {
			return nil, nil, newFormatError("json: %v", err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = scalar(raw)
	}
	if _, err := j.dec.Token(); err != nil {
		return nil, nil, newFormatError("json: %v", err)
	}
	return keys, values, nil
}

// scalar renders a json value as cell text. Nested values stay compact json.
func scalar(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	return string(trimmed)
}
