package serde

// Deserialiser turns the raw value of a message into T.
type Deserialiser[T any] interface {
	Deserialise(topic string, data []byte) (T, error)
}

// Serialiser is the inverse of Deserialiser, used to produce fixtures and replay data.
type Serialiser[T any] interface {
	Serialise(topic string, value T) ([]byte, error)
}

type Serde[T any] interface {
	Serialiser[T]
	Deserialiser[T]
}

// DeserialiserFunc adapts a plain function to Deserialiser.
type DeserialiserFunc[T any] func(topic string, data []byte) (T, error)

func (f DeserialiserFunc[T]) Deserialise(topic string, data []byte) (T, error) {
	return f(topic, data)
}
