package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/codec"
)

type user struct {
	Name  string `json:"name" msgpack:"name"`
	Email string `json:"email" msgpack:"email"`
}

func TestByName(t *testing.T) {
	c, err := codec.ByName("")
	require.NoError(t, err)
	require.Equal(t, codec.NameJSON, c.Name())

	c, err = codec.ByName("msgpack")
	require.NoError(t, err)
	require.Equal(t, codec.NameMsgpack, c.Name())

	_, err = codec.ByName("xml")
	require.Error(t, err)
}

func TestRecordEnvelope(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, c := range []codec.Codec{codec.JSON{}, codec.Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			in := conveyor.NewRecord(conveyor.Header{Number: 7, Source: "users.csv", CreatedAt: created}, user{Name: "ada", Email: "ada@example.com"})

			data, err := codec.EncodeRecord(c, in)
			require.NoError(t, err)

			out, err := codec.DecodeRecord(c, data)
			require.NoError(t, err)
			require.False(t, out.IsPoison())
			require.Equal(t, int64(7), out.Header.Number)
			require.Equal(t, "users.csv", out.Header.Source)
			require.True(t, created.Equal(out.Header.CreatedAt))

			u, err := codec.DecodePayload[user](c, out)
			require.NoError(t, err)
			require.Equal(t, user{Name: "ada", Email: "ada@example.com"}, u)
		})
	}
}

func TestPoisonEnvelope(t *testing.T) {
	data, err := codec.EncodeRecord(codec.Msgpack{}, conveyor.NewPoisonRecord())
	require.NoError(t, err)

	out, err := codec.DecodeRecord(codec.Msgpack{}, data)
	require.NoError(t, err)
	require.True(t, out.IsPoison())
}

func TestDecodePayloadWrongType(t *testing.T) {
	r := conveyor.NewRecord(conveyor.NewHeader(1, "t"), 42)
	_, err := codec.DecodePayload[user](codec.JSON{}, r)
	require.ErrorIs(t, err, conveyor.ErrPayloadType)
}
