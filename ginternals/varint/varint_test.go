package varint_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sim-o/wyag/ginternals/varint"
)

func TestReadLE(t *testing.T) {
	t.Parallel()

	t.Run("single byte value", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader([]byte{0x05}))
		v, err := varint.ReadLE(r)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), v)
	})

	t.Run("multi-byte continuation", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader([]byte{0x85, 0x02}))
		v, err := varint.ReadLE(r)
		require.NoError(t, err)
		assert.Equal(t, uint64(261), v)
	})

	t.Run("empty input fails", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader(nil))
		_, err := varint.ReadLE(r)
		require.Error(t, err)
	})
}

func TestReadTypeAndSize(t *testing.T) {
	t.Parallel()

	t.Run("size fits in the first byte", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader([]byte{0x25}))
		typ, size, err := varint.ReadTypeAndSize(r)
		require.NoError(t, err)
		assert.Equal(t, uint8(2), typ)
		assert.Equal(t, uint64(5), size)
	})

	t.Run("size spans a continuation byte", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader([]byte{0xB1, 0x01}))
		typ, size, err := varint.ReadTypeAndSize(r)
		require.NoError(t, err)
		assert.Equal(t, uint8(3), typ)
		assert.Equal(t, uint64(17), size)
	})

	t.Run("truncated continuation fails", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader([]byte{0xB1}))
		_, _, err := varint.ReadTypeAndSize(r)
		require.Error(t, err)
	})

	t.Run("empty input fails", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader(nil))
		_, _, err := varint.ReadTypeAndSize(r)
		require.Error(t, err)
	})
}

func TestReadDeltaOffset(t *testing.T) {
	t.Parallel()

	t.Run("single byte offset", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader([]byte{10}))
		v, err := varint.ReadDeltaOffset(r)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), v)
	})

	t.Run("bias-encoded multi-byte offset", func(t *testing.T) {
		t.Parallel()

		// Encodes 4096 using the same bias scheme ReadDeltaOffset decodes:
		// each continuation byte subtracts 1 before shifting in the next 7 bits.
		r := bufio.NewReader(bytes.NewReader([]byte{0x9F, 0x00}))
		v, err := varint.ReadDeltaOffset(r)
		require.NoError(t, err)
		assert.Equal(t, uint64(4096), v)
	})

	t.Run("empty input fails", func(t *testing.T) {
		t.Parallel()

		r := bufio.NewReader(bytes.NewReader(nil))
		_, err := varint.ReadDeltaOffset(r)
		require.Error(t, err)
	})
}
