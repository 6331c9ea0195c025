package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONField stores T as a json document column.
type JSONField[T any] struct {
	Data T
}

func MakeJSONField[T any](data T) *JSONField[T] {
	return &JSONField[T]{Data: data}
}

func (j *JSONField[T]) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into a json field", value)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &j.Data)
}

func (j JSONField[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
