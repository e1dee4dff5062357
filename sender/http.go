package sender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/mohamedbeat/hsend/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// readBufferSize is kept small: every read is echoed as soon as it arrives.
const readBufferSize = 512

// sendHTTP1 writes the request while a second goroutine reads the response
// from the same connection, so the response can stream in before the request
// is fully written.
func (s *Sender) sendHTTP1(ctx context.Context, req *Request) error {
	conn, err := s.dial(ctx, req)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Closing on cancellation unblocks both goroutines; ctx.Err is already
	// set by then.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	received := make(chan error, 1)
	go func() {
		received <- s.receiveHTTP1(conn)
	}()

	s.Console.Banner(labelSendingRequest)
	if err := s.writeHTTP1(conn, req); err != nil {
		// Closing unblocks the reader; its result no longer matters.
		err = multierr.Append(err, conn.Close())
		<-received
		return fmt.Errorf("failed writing request: %w", err)
	}
	s.Console.Println()
	s.Console.Banner(labelRequestSent)

	s.reportResponseError(<-received)
	return ctx.Err()
}

func (s *Sender) writeHTTP1(conn net.Conn, req *Request) error {
	var buf bytes.Buffer
	if req.RequestLine != "" {
		buf.WriteString(req.RequestLine)
		buf.Write(lineSeparator)
	}
	for _, h := range req.Headers {
		if req.Body != nil && strings.EqualFold(h.Name, "content-length") {
			buf.WriteString(h.Name + ": " + strconv.Itoa(len(req.Body)))
		} else {
			buf.WriteString(h.Raw)
		}
		buf.Write(lineSeparator)
	}
	buf.Write(lineSeparator)
	buf.Write(req.Body)

	out := NewMirroredSink(conn, s.Console, Unbounded)
	n, err := out.Write(buf.Bytes())
	if n < buf.Len() {
		return err
	}
	s.echoErrorLogger()(err)
	s.Logger.Debug("Request written", zap.String("size", logger.HumanizeBytes(buf.Len())))
	return nil
}

// receiveHTTP1 captures the response until the peer closes the connection,
// then decodes and prints it.
func (s *Sender) receiveHTTP1(conn net.Conn) error {
	var raw bytes.Buffer
	out := NewMirroredSink(&raw, s.Console, s.opts.EchoLimit)
	logEcho := s.echoErrorLogger()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			_, echoErr := out.Write(buf[:n])
			logEcho(echoErr)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
	}

	s.Console.Println()
	s.Console.Banner(labelResponseReceived)

	resp, err := parseResponse(raw.Bytes())
	if err != nil {
		return err
	}
	s.Logger.Info("HTTP response",
		zap.String("proto", resp.Proto),
		zap.Int("status", resp.StatusCode),
		zap.String("size", logger.HumanizeBytes(raw.Len())))

	return s.analyze(resp, false)
}

// parseResponse splits a raw HTTP/1.x response at the blank line after the
// headers. Header lines without a colon, the status line included, are not
// headers.
func parseResponse(raw []byte) (*Response, error) {
	idx := IndexFrom(raw, 0, headerSeparator)
	if idx == -1 {
		return nil, ErrNoHeaderBoundary
	}

	resp := &Response{Body: raw[idx+len(headerSeparator):]}
	for i, line := range strings.Split(string(raw[:idx]), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if i == 0 && resp.parseStatusLine(line) {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		resp.Headers = append(resp.Headers, Header{
			Name:     strings.TrimSpace(name),
			Value:    strings.TrimSpace(value),
			HasValue: true,
			Raw:      line,
		})
	}
	return resp, nil
}

func (r *Response) parseStatusLine(line string) bool {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/") {
		return false
	}
	r.Proto = parts[0]
	r.StatusCode, _ = strconv.Atoi(parts[1])
	if len(parts) > 2 {
		r.Status = parts[2]
	}
	return true
}
