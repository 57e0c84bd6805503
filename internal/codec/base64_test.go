package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIntoValid(t *testing.T) {
	d := NewDecoder()
	cases := map[string]string{
		"dGhlIHF1aWNrIGJyb3duIGZveA==": "the quick brown fox",
		"QUJD":                         "ABC",
		"QQ==":                         "A",
		"QUI=":                         "AB",
		"":                             "",
		"dGhl\r\nIGZv\neA==":           "the fox",
	}
	for in, want := range cases {
		got, err := d.DecodeInto(nil, []byte(in))
		require.NoErrorf(t, err, "decode %q", in)
		assert.Equal(t, want, string(got))
	}
}

func TestDecodeIntoReusesBuffer(t *testing.T) {
	d := NewDecoder()
	buf := make([]byte, 0, 64)

	out, err := d.DecodeInto(buf, []byte("QUJD"))
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(out))
	assert.Same(t, &buf[:1][0], &out[0], "decode must write into the supplied backing array")
}

func TestDecodeIntoInvalidLastSymbolIsRecoverable(t *testing.T) {
	d := NewDecoder()
	// Each input is well formed but the last data symbol carries set low
	// bits: 'R' (17) after 'Q', 'J' (9) in a three-symbol group.
	for _, in := range []string{"QR==", "QUJ=", "dGhlIHF1aWNrIGJyb3duIGZveB==", "QUJDQr=="} {
		out, err := d.DecodeInto(make([]byte, 8), []byte(in))
		require.Errorf(t, err, "decode %q", in)
		assert.Truef(t, errors.Is(err, ErrInvalidLastSymbol), "decode %q: %v", in, err)
		assert.False(t, errors.Is(err, ErrCorruptInput))
		assert.True(t, Recoverable(err))
		assert.Empty(t, out, "failed decode must leave no stale guess bytes")
	}
}

func TestDecodeIntoForeignByteIsFatal(t *testing.T) {
	d := NewDecoder()
	for _, in := range []string{"QU!D", "Q\x00JD", "QUJD-A==", "QUJD QQ=="} {
		_, err := d.DecodeInto(nil, []byte(in))
		require.Errorf(t, err, "decode %q", in)
		assert.Truef(t, errors.Is(err, ErrCorruptInput), "decode %q: %v", in, err)
		assert.False(t, Recoverable(err))

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.GreaterOrEqual(t, decodeErr.Offset, int64(0))
	}
}

func TestDecodeIntoStructuralErrorsAreFatal(t *testing.T) {
	d := NewDecoder()
	for _, in := range []string{"QUJ", "Q===", "QQ==QUJD", "Q"} {
		_, err := d.DecodeInto(nil, []byte(in))
		require.Errorf(t, err, "decode %q", in)
		assert.Truef(t, errors.Is(err, ErrCorruptInput), "decode %q: %v", in, err)
	}
}
