//go:build fuzz

package serde_test

import (
	"testing"

	"github.com/hugolhafner/go-consumer/serde"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Deserialise must never panic on arbitrary message values.
func FuzzProtobuf_Deserialise(f *testing.F) {
	validBytes, _ := proto.Marshal(wrapperspb.String("hello"))
	f.Add(validBytes)
	f.Add([]byte{})
	f.Add([]byte{0xff, 0xfe, 0x00, 0x01, 0x02, 0x80})

	s := serde.Protobuf[*wrapperspb.StringValue]()

	f.Fuzz(
		func(t *testing.T, data []byte) {
			val, err := s.Deserialise("topic", data)
			if err != nil {
				return
			}
			require.NotNil(t, val)
		},
	)
}

func FuzzJSON_Deserialise(f *testing.F) {
	f.Add([]byte(`{"key":"value"}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`[1,2`))

	s := serde.StrictJSON[map[string]any]()

	f.Fuzz(
		func(t *testing.T, data []byte) {
			_, _ = s.Deserialise("topic", data)
		},
	)
}
