package sender

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
)

// MirroredSink writes everything to primary and echoes it to secondary until
// limit bytes have been echoed. Past the limit a single notice is echoed and
// the rest is only captured by primary.
type MirroredSink struct {
	primary   io.Writer
	secondary io.Writer
	limit     int

	written       int
	noticeWritten bool
}

func NewMirroredSink(primary, secondary io.Writer, limit int) *MirroredSink {
	return &MirroredSink{primary: primary, secondary: secondary, limit: limit}
}

// Write reports the primary's byte count; secondary errors are appended to
// the returned error.
func (m *MirroredSink) Write(p []byte) (int, error) {
	n, err := m.primary.Write(p)
	if err != nil {
		return n, err
	}
	return n, m.echo(p)
}

func (m *MirroredSink) echo(p []byte) error {
	if m.limit < 0 {
		n, err := m.secondary.Write(p)
		m.written += n
		return err
	}

	var err error
	if room := m.limit - m.written; room > 0 {
		part := p
		if len(part) > room {
			part = part[:room]
		}
		_, err = m.secondary.Write(part)
		m.written += len(part)
		p = p[len(part):]
	}
	if len(p) > 0 && !m.noticeWritten {
		m.noticeWritten = true
		_, noticeErr := fmt.Fprintf(m.secondary, "\n[... cropped data over the length of %d ...]", m.limit)
		err = multierr.Append(err, noticeErr)
	}
	return err
}

// Echoed reports how many bytes reached the secondary writer, notice excluded.
func (m *MirroredSink) Echoed() int {
	return m.written
}
