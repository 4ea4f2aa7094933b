package oscmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureWriter(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		dst := bytes.NewBufferString("")
		cw := newCaptureWriter(dst, 100)

		_, _ = cw.Write([]byte(""))
		assert.Equal(t, "", cw.String())

		_, _ = cw.Write([]byte("0123456789"))
		assert.Equal(t, "0123456789", cw.String())
		assert.Equal(t, "0123456789", dst.String())
	})

	t.Run("full-capacity", func(t *testing.T) {
		dst := bytes.NewBufferString("")
		cw := newCaptureWriter(dst, 100)

		_, _ = cw.Write([]byte(strings.Repeat("0123456789", 10)))
		assert.Equal(t, strings.Repeat("0123456789", 10), cw.String())
	})

	t.Run("single-write-overflow", func(t *testing.T) {
		dst := bytes.NewBufferString("")
		cw := newCaptureWriter(dst, 10)

		_, _ = cw.Write([]byte(strings.Repeat("0123456789", 2)))
		assert.Equal(t, "0123456789", cw.String())
		// destination still receives everything
		assert.Equal(t, strings.Repeat("0123456789", 2), dst.String())
	})

	t.Run("one-byte-overflow", func(t *testing.T) {
		dst := bytes.NewBufferString("")
		cw := newCaptureWriter(dst, 10)

		_, _ = cw.Write([]byte("01234567890"))
		assert.Equal(t, "1234567890", cw.String())
	})

	t.Run("overflow-across-writes", func(t *testing.T) {
		dst := bytes.NewBufferString("")
		cw := newCaptureWriter(dst, 10)

		_, _ = cw.Write([]byte("00123"))
		_, _ = cw.Write([]byte("456789"))
		assert.Equal(t, "0123456789", cw.String())
	})
}
