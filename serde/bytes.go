package serde

var _ Serde[[]byte] = bytesSerde{}

type bytesSerde struct{}

// Bytes passes values through untouched.
func Bytes() Serde[[]byte] {
	return bytesSerde{}
}

func (s bytesSerde) Serialise(_ string, value []byte) ([]byte, error) {
	return value, nil
}

func (s bytesSerde) Deserialise(_ string, data []byte) ([]byte, error) {
	return data, nil
}
