package tabular

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// jsonWriter emits a pretty printed array of objects whose keys follow the header order.
type jsonWriter struct {
	out      *bufio.Writer
	envelope string
	headers  []string
	rows     int
	started  bool
}

func newJSONWriter(w io.Writer, opts WriterOptions) *jsonWriter {
	return &jsonWriter{out: bufio.NewWriter(w), envelope: opts.Envelope}
}

func (j *jsonWriter) indent() string {
	if j.envelope != "" {
		return "    "
	}
	return "  "
}

func (j *jsonWriter) start() error {
	if j.started {
		return nil
	}
	j.started = true
	if j.envelope == "" {
		_, err := j.out.WriteString("[")
		return err
	}
	key, err := json.Marshal(j.envelope)
	if err != nil {
		return err
	}
	_, err = j.out.WriteString("{\n  " + string(key) + ": [")
	return err
}

func (j *jsonWriter) WriteHeader(headers []string) error {
	j.headers = headers
	return j.start()
}

func (j *jsonWriter) WriteRow(values []any) error {
	if err := j.start(); err != nil {
		return err
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, h := range j.headers {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(h)
		if err != nil {
			return err
		}
		var v any
		if i < len(values) {
			v = cellValue(values[i])
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(val)
	}
	compact.WriteByte('}')

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact.Bytes(), j.indent(), "  "); err != nil {
		return err
	}

	sep := "\n"
	if j.rows > 0 {
		sep = ",\n"
	}
	j.rows++
	if _, err := j.out.WriteString(sep + j.indent()); err != nil {
		return err
	}
	_, err := j.out.Write(pretty.Bytes())
	return err
}

func (j *jsonWriter) Close() error {
	if err := j.start(); err != nil {
		return err
	}
	closing := "]"
	if j.rows > 0 {
		closing = "\n" + j.indent()[2:] + "]"
	}
	if j.envelope != "" {
		closing += "\n}"
	}
	if _, err := j.out.WriteString(closing + "\n"); err != nil {
		return err
	}
	return j.out.Flush()
}
