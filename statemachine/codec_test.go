package statemachine

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level int

func TestTextCodec(t *testing.T) {
	t.Parallel()

	t.Run("string kind", func(t *testing.T) {
		t.Parallel()

		codec := TextCodec[door]()

		s, err := codec.Encode(opened)
		require.NoError(t, err)
		assert.Equal(t, "opened", s)

		v, err := codec.Decode("halfway")
		require.NoError(t, err)
		assert.Equal(t, halfway, v)
	})

	t.Run("int kind", func(t *testing.T) {
		t.Parallel()

		codec := TextCodec[level]()

		s, err := codec.Encode(level(-3))
		require.NoError(t, err)
		assert.Equal(t, "-3", s)

		v, err := codec.Decode("7")
		require.NoError(t, err)
		assert.Equal(t, level(7), v)

		_, err = codec.Decode("seven")
		require.ErrorIs(t, err, ErrInvalidCodecValue)
	})

	t.Run("bool, uint and float", func(t *testing.T) {
		t.Parallel()

		b, err := TextCodec[bool]().Decode("true")
		require.NoError(t, err)
		assert.True(t, b)

		u, err := TextCodec[uint8]().Decode("255")
		require.NoError(t, err)
		assert.Equal(t, uint8(255), u)

		_, err = TextCodec[uint8]().Decode("256")
		require.ErrorIs(t, err, ErrInvalidCodecValue)

		s, err := TextCodec[float64]().Encode(0.25)
		require.NoError(t, err)
		assert.Equal(t, "0.25", s)
	})

	t.Run("text marshaler", func(t *testing.T) {
		t.Parallel()

		codec := TextCodec[netip.Addr]()

		s, err := codec.Encode(netip.MustParseAddr("10.0.0.1"))
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1", s)

		v, err := codec.Decode("192.168.1.1")
		require.NoError(t, err)
		assert.Equal(t, netip.MustParseAddr("192.168.1.1"), v)

		_, err = codec.Decode("not-an-ip")
		require.ErrorIs(t, err, ErrInvalidCodecValue)
	})

	t.Run("unsupported kind", func(t *testing.T) {
		t.Parallel()

		type pair struct{ A, B int }

		_, err := TextCodec[pair]().Encode(pair{})
		require.ErrorIs(t, err, ErrInvalidCodecValue)

		_, err = TextCodec[pair]().Decode("x")
		require.ErrorIs(t, err, ErrInvalidCodecValue)
	})
}
