package qrtoken

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := NewCodec([]byte("test-signing-key"))
	p := Payload{
		ReservationID: 42,
		UserID:        7,
		SlotNumber:    "CP-1-3",
		Nonce:         "3f2c1a",
		IssuedAt:      1767600000,
	}
	token, err := c.Encode(p)
	require.NoError(t, err)

	got, err := c.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	c := NewCodec([]byte("test-signing-key"))

	_, err := c.Decode("not base64!!!")
	assert.ErrorIs(t, err, ErrTampered)

	_, err = c.Decode(base64.RawURLEncoding.EncodeToString([]byte("not json")))
	assert.ErrorIs(t, err, ErrTampered)
}

func TestDecodeRejectsMutatedPayload(t *testing.T) {
	c := NewCodec([]byte("test-signing-key"))
	token, err := c.Encode(Payload{ReservationID: 42, UserID: 7, SlotNumber: "A-1", Nonce: "n", IssuedAt: 1})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))

	// Point the token at another reservation without re-signing.
	env.Payload.ReservationID = 43
	mutated, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = c.Decode(base64.RawURLEncoding.EncodeToString(mutated))
	assert.ErrorIs(t, err, ErrTampered)
}

func TestDecodeRejectsWrongKey(t *testing.T) {
	issuer := NewCodec([]byte("key-one"))
	verifier := NewCodec([]byte("key-two"))

	token, err := issuer.Encode(Payload{ReservationID: 1, UserID: 1, Nonce: "n"})
	require.NoError(t, err)

	_, err = verifier.Decode(token)
	assert.ErrorIs(t, err, ErrTampered)
}

func TestTagIsTruncated(t *testing.T) {
	c := NewCodec([]byte("test-signing-key"))
	tag, err := c.tag(Payload{ReservationID: 1})
	require.NoError(t, err)
	assert.Len(t, tag, tagLen)
}
