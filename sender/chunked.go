package sender

import (
	"bytes"
	"fmt"
	"strconv"
)

// Dechunk unwraps a complete chunked-transfer-encoded body. Trailers after
// the terminal zero-size chunk are dropped.
func Dechunk(src []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(src))

	for offset := 0; ; {
		sep := IndexFrom(src, offset, lineSeparator)
		if sep == -1 {
			return nil, fmt.Errorf("%w at offset %d", ErrChunkedSeparator, offset)
		}

		sizeText := string(src[offset:sep])
		size, err := strconv.ParseUint(sizeText, 16, 31)
		if err != nil {
			return nil, fmt.Errorf("%w %q at offset %d", ErrChunkSize, sizeText, offset)
		}
		if size == 0 {
			break
		}

		offset = sep + len(lineSeparator)
		end := offset + int(size)
		if end+len(lineSeparator) > len(src) {
			return nil, fmt.Errorf("%w: chunk of %d bytes at offset %d, %d bytes left",
				ErrChunkOverflow, size, offset, len(src)-offset)
		}
		out.Write(src[offset:end])
		offset = end + len(lineSeparator)
	}
	return out.Bytes(), nil
}
