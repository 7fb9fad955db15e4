//go:build unit

package serde_test

import (
	"strconv"
	"testing"

	"github.com/hugolhafner/go-consumer/serde"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestPassthroughDeserialisers(t *testing.T) {
	t.Parallel()

	raw := []byte{0x00, 'h', 'i', 0xff}

	b, err := serde.Bytes().Deserialise("topic", raw)
	require.NoError(t, err)
	require.Equal(t, raw, b)

	s, err := serde.String().Deserialise("topic", raw)
	require.NoError(t, err)
	require.Equal(t, string(raw), s)
}

func TestJSON_Deserialise(t *testing.T) {
	t.Parallel()

	type Order struct {
		ID    string `json:"id"`
		Total int    `json:"total"`
	}

	tests := []struct {
		name    string
		serde   serde.Serde[Order]
		input   string
		expect  Order
		wantErr bool
	}{
		{
			name:   "valid",
			serde:  serde.JSON[Order](),
			input:  `{"id":"o-1","total":25}`,
			expect: Order{ID: "o-1", Total: 25},
		},
		{
			name:   "unknown field tolerated",
			serde:  serde.JSON[Order](),
			input:  `{"id":"o-1","total":25,"note":"x"}`,
			expect: Order{ID: "o-1", Total: 25},
		},
		{
			name:    "unknown field rejected when strict",
			serde:   serde.StrictJSON[Order](),
			input:   `{"id":"o-1","total":25,"note":"x"}`,
			wantErr: true,
		},
		{
			name:    "wrong type",
			serde:   serde.JSON[Order](),
			input:   `{"id":"o-1","total":"lots"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()

				output, err := tt.serde.Deserialise("orders", []byte(tt.input))
				if tt.wantErr {
					require.Error(t, err)
					return
				}

				require.NoError(t, err)
				require.Equal(t, tt.expect, output)
			},
		)
	}
}

func TestProtobuf_DeserialiseAllocatesMessage(t *testing.T) {
	t.Parallel()

	s := serde.Protobuf[*wrapperspb.StringValue]()

	data, err := proto.Marshal(wrapperspb.String("hello world"))
	require.NoError(t, err)

	first, err := s.Deserialise("topic", data)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, "hello world", first.GetValue())

	second, err := s.Deserialise("topic", data)
	require.NoError(t, err)
	require.NotSame(t, first, second)

	empty, err := s.Deserialise("topic", nil)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Equal(t, "", empty.GetValue())
}

func TestProtobuf_DeserialiseInvalid(t *testing.T) {
	t.Parallel()

	_, err := serde.Protobuf[*wrapperspb.StringValue]().Deserialise("topic", []byte("not valid protobuf \xff\xfe"))
	require.Error(t, err)
}

func TestDeserialiserFunc(t *testing.T) {
	t.Parallel()

	d := serde.DeserialiserFunc[int](
		func(_ string, data []byte) (int, error) {
			return strconv.Atoi(string(data))
		},
	)

	n, err := d.Deserialise("topic", []byte("42"))
	require.NoError(t, err)
	require.Equal(t, 42, n)

	_, err = d.Deserialise("topic", []byte("x"))
	require.Error(t, err)
}
