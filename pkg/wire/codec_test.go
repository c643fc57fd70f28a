package wire

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEmit(t *testing.T) {
	in := NewEmit(7, "orderUpdated", map[string]any{"id": 1, "status": "served"})

	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, TypeEmit, out.Type)
	assert.Equal(t, uint32(7), out.ID)
	assert.Equal(t, "orderUpdated", out.Event)

	payload, ok := out.Payload.(map[string]any)
	require.True(t, ok, "payload should decode as map[string]any, got %T", out.Payload)
	assert.Equal(t, "served", payload["status"])
	assert.EqualValues(t, 1, payload["id"])
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	data, err := Encode(NewAck(3, nil))
	require.NoError(t, err)

	var raw map[int]any
	require.NoError(t, Unmarshal(data, &raw))

	assert.Contains(t, raw, KeyType)
	assert.Contains(t, raw, KeyID)
	assert.NotContains(t, raw, KeyEvent)
	assert.NotContains(t, raw, KeyPayload)
}

func TestEncodeDeterministic(t *testing.T) {
	msg := NewEvent("tableChanged", map[string]any{"b": 2, "a": 1, "c": 3})

	first, err := Encode(msg)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(msg)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"emit ok", Message{Type: TypeEmit, ID: 1, Event: "x"}, nil},
		{"emit missing id", Message{Type: TypeEmit, Event: "x"}, ErrMissingID},
		{"emit missing event", Message{Type: TypeEmit, ID: 1}, ErrMissingEvent},
		{"emit blank event", Message{Type: TypeEmit, ID: 1, Event: "  "}, ErrMissingEvent},
		{"ack ok", Message{Type: TypeAck, ID: 9}, nil},
		{"ack missing id", Message{Type: TypeAck}, ErrMissingID},
		{"event ok", Message{Type: TypeEvent, Event: "x"}, nil},
		{"event missing name", Message{Type: TypeEvent}, ErrMissingEvent},
		{"event too long", Message{Type: TypeEvent, Event: strings.Repeat("e", MaxEventNameLength+1)}, ErrEventTooLong},
		{"unknown type", Message{Type: 42}, ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00, 0x13})
	assert.Error(t, err)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	data, err := Marshal(&Message{Type: TypeEmit, Event: "orderUpdated"})
	require.NoError(t, err)

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		typ  MessageType
		want string
	}{
		{TypeEmit, "EMIT"},
		{TypeAck, "ACK"},
		{TypeEvent, "EVENT"},
		{MessageType(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}
