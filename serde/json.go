package serde

import (
	"bytes"
	"encoding/json"
)

type jsonSerde[T any] struct {
	strict bool
}

// JSON returns a Serde that uses JSON for serialisation and deserialisation.
func JSON[T any]() Serde[T] {
	return jsonSerde[T]{}
}

// StrictJSON rejects payloads carrying fields T does not declare.
func StrictJSON[T any]() Serde[T] {
	return jsonSerde[T]{strict: true}
}

func (s jsonSerde[T]) Serialise(_ string, value T) ([]byte, error) {
	return json.Marshal(value)
}

func (s jsonSerde[T]) Deserialise(_ string, data []byte) (T, error) {
	var result T
	if !s.strict {
		err := json.Unmarshal(data, &result)
		return result, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(&result)
	return result, err
}
