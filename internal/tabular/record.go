package tabular

import "strings"

// Record is one data row. Values line up with the reader headers.
type Record struct {
	// Row is 1-based and does not count the header line.
	Row     int
	headers []string
	values  []string
}

func NewRecord(row int, headers, values []string) Record {
	aligned := make([]string, len(headers))
	copy(aligned, values)
	return Record{Row: row, headers: headers, values: aligned}
}

func (r Record) Get(header string) (string, bool) {
	for i, h := range r.headers {
		if h == header {
			return r.values[i], true
		}
	}
	return "", false
}

func (r Record) Headers() []string {
	return r.headers
}

func (r Record) Values() []string {
	return r.values
}

// Map returns header -> value. Duplicate headers keep the first value.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.headers))
	for i, h := range r.headers {
		if _, ok := m[h]; !ok {
			m[h] = r.values[i]
		}
	}
	return m
}

func (r Record) IsBlank() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
