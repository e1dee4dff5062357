package sender

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func chunk(parts ...string) []byte {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%x\r\n%s\r\n", len(p), p)
	}
	b.WriteString("0\r\n\r\n")
	return []byte(b.String())
}

func TestDechunk(t *testing.T) {
	src := "4\r\n" +
		"ZZZ1\r\n" +
		"15\r\n" +
		"ZZZ123\nzzz456\r\nzzz789\r\n" +
		"0\r\n" +
		"\r\n"

	got, err := Dechunk([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "ZZZ1ZZZ123\nzzz456\r\nzzz789", string(got))
}

func TestDechunk_RoundTrip(t *testing.T) {
	parts := []string{"a", strings.Repeat("x", 300), "\r\n\r\n", "\x00\xff binary", "tail"}
	got, err := Dechunk(chunk(parts...))
	require.NoError(t, err)
	require.Equal(t, strings.Join(parts, ""), string(got))
}

func TestDechunk_UpperCaseSize(t *testing.T) {
	body := strings.Repeat("q", 26)
	got, err := Dechunk([]byte("1A\r\n" + body + "\r\n0\r\n\r\n"))
	require.NoError(t, err)
	require.Equal(t, body, string(got))
}

func TestDechunk_TrailersIgnored(t *testing.T) {
	src := "5\r\nhello\r\n0\r\nX-Checksum: abc\r\n\r\n"
	got, err := Dechunk([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestDechunk_Empty(t *testing.T) {
	got, err := Dechunk([]byte("0\r\n\r\n"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDechunk_Overflow(t *testing.T) {
	src := "4\r\n" +
		"ZZZ1\r\n" +
		"15\r\n" +
		"ZZZ123\nzzz456\r\nzzz789\r\n" +
		"1\r\n" +
		"\r\n"

	_, err := Dechunk([]byte(src))
	require.ErrorIs(t, err, ErrStreamCorrupted)
	require.ErrorIs(t, err, ErrChunkOverflow)
}

func TestDechunk_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{"no separator", "5hello", ErrChunkedSeparator},
		{"missing terminator", "5\r\nhello\r\n", ErrChunkedSeparator},
		{"not hex", "zz\r\nhello\r\n0\r\n\r\n", ErrChunkSize},
		{"plus sign", "+5\r\nhello\r\n0\r\n\r\n", ErrChunkSize},
		{"empty size", "\r\nhello\r\n", ErrChunkSize},
		{"too long", "10\r\nhello\r\n0\r\n\r\n", ErrChunkOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Dechunk([]byte(tt.src))
			require.ErrorIs(t, err, tt.err)
			require.ErrorIs(t, err, ErrStreamCorrupted)
		})
	}
}
