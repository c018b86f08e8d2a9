package ginternals_test

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/sim-o/wyag/ginternals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooseObjectPath(t *testing.T) {
	t.Parallel()

	oid, err := ginternals.NewOidFromHex("fcfe68a0e44e04bd7fd564fc0b75f1ae457e18b3")
	require.NoError(t, err)

	out := ginternals.LooseObjectPath(oid)
	assert.Equal(t, "fc/fe68a0e44e04bd7fd564fc0b75f1ae457e18b3", out)
}

func compressLoose(t *testing.T, raw []byte) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zlib.NewWriter(buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf
}

func TestParseLooseObject(t *testing.T) {
	t.Parallel()

	t.Run("valid object should pass", func(t *testing.T) {
		t.Parallel()

		content := []byte("hello world")
		raw := append([]byte("blob 11\x00"), content...)

		parsed, err := ginternals.ParseLooseObject(compressLoose(t, raw))
		require.NoError(t, err)
		assert.Equal(t, "blob", parsed.Type)
		assert.Equal(t, 11, parsed.Size)
		assert.Equal(t, content, parsed.Content)
	})

	t.Run("invalid zlib stream should fail", func(t *testing.T) {
		t.Parallel()

		_, err := ginternals.ParseLooseObject(bytes.NewReader([]byte("not zlib data")))
		require.Error(t, err)
	})

	t.Run("missing separator should fail", func(t *testing.T) {
		t.Parallel()

		_, err := ginternals.ParseLooseObject(compressLoose(t, []byte("blobnoseparator")))
		require.Error(t, err)
	})

	t.Run("missing NUL terminator should fail", func(t *testing.T) {
		t.Parallel()

		_, err := ginternals.ParseLooseObject(compressLoose(t, []byte("blob 11 nonul")))
		require.Error(t, err)
	})

	t.Run("size mismatch should fail", func(t *testing.T) {
		t.Parallel()

		raw := append([]byte("blob 99\x00"), []byte("too short")...)
		_, err := ginternals.ParseLooseObject(compressLoose(t, raw))
		require.Error(t, err)
	})

	t.Run("non-digit size should fail", func(t *testing.T) {
		t.Parallel()

		raw := append([]byte("blob 1x\x00"), []byte("x")...)
		_, err := ginternals.ParseLooseObject(compressLoose(t, raw))
		require.Error(t, err)
	})
}
