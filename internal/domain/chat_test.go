package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessageRoundTrip(t *testing.T) {
	msg := ChatMessage{
		User: User{ID: "a1", Name: "alice"},
		Type: MessageTypeMessage,
		Data: "hello",
	}
	payload, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := DecodeChatMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestDecodeChatMessageRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":    "{not json",
		"missing user id": `{"user":{"name":"alice"},"type":"message","data":"x"}`,
		"missing type":    `{"user":{"id":"a1","name":"alice"},"data":"x"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeChatMessage(payload)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestRoomRecordRoundTrip(t *testing.T) {
	rec := RoomRecord{Password: "p1", ExpireEmptyDelay: 3600}
	payload, err := rec.Encode()
	require.NoError(t, err)

	decoded, err := DecodeRoomRecord(payload)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestDecodeRoomRecordRejectsMalformed(t *testing.T) {
	_, err := DecodeRoomRecord("{not json")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = DecodeRoomRecord(`{"password":"","expire_empty_delay":-2}`)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestDecodeRoomRecordAcceptsNeverExpire(t *testing.T) {
	rec, err := DecodeRoomRecord(`{"password":"","expire_empty_delay":-1}`)
	require.NoError(t, err)
	assert.Equal(t, -1, rec.ExpireEmptyDelay)
}
