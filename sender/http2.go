package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// HTTP/2 rejects connection-specific header fields (RFC 9113, 8.2.2).
var connectionHeaders = map[string]bool{
	"connection":        true,
	"keep-alive":        true,
	"proxy-connection":  true,
	"transfer-encoding": true,
	"upgrade":           true,
}

// sendHTTP2 hands the request to the x/net HTTP/2 transport as one blocking
// round trip. Without TLS it speaks cleartext HTTP/2 with prior knowledge.
func (s *Sender) sendHTTP2(ctx context.Context, req *Request) error {
	tr := &http2.Transport{
		DisableCompression: true,
		TLSClientConfig:    s.clientTLSConfig(req.Host),
	}
	defer tr.CloseIdleConnections()

	scheme := "https"
	if !req.TLS {
		scheme = "http"
		tr.AllowHTTP = true
		tr.DialTLSContext = func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		}
	}

	httpReq, err := s.newHTTP2Request(ctx, scheme, req)
	if err != nil {
		return err
	}

	resp, err := tr.RoundTrip(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP/2 round trip failed: %w", err)
	}
	defer resp.Body.Close()

	s.Logger.Info("HTTP response",
		zap.String("proto", resp.Proto),
		zap.Int("status", resp.StatusCode))

	headers := s.printHTTP2Head(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.reportResponseError(fmt.Errorf("reading response body: %w", err))
		return nil
	}
	if len(body) == 0 {
		s.Console.Banner(labelNoBody)
	} else {
		s.Console.Banner(labelResponseBody)
		out := NewMirroredSink(io.Discard, s.Console, s.opts.BodyEchoLimit)
		_, err := out.Write(body)
		s.echoErrorLogger()(err)
		s.Console.Println()
	}

	s.reportResponseError(s.analyze(&Response{
		Proto:      resp.Proto,
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Headers:    headers,
		Body:       body,
	}, true))
	return nil
}

func (s *Sender) newHTTP2Request(ctx context.Context, scheme string, req *Request) (*http.Request, error) {
	target := scheme + "://" + net.JoinHostPort(req.Host, strconv.Itoa(req.Port)) + req.Path

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP/2 request: %w", err)
	}

	for _, h := range req.Headers {
		if !h.HasValue {
			s.Logger.Warn("Skipping header without value", zap.String("header", h.Raw))
			continue
		}
		name := strings.ToLower(h.Name)
		switch {
		case connectionHeaders[name], name == "te" && h.Value != "trailers":
			s.Logger.Warn("Dropping connection-specific header not allowed in HTTP/2", zap.String("header", h.Name))
		case strings.HasPrefix(name, ":"):
			s.Logger.Warn("Dropping unknown pseudo-header", zap.String("header", h.Name))
		case name == "host":
			httpReq.Host = h.Value
		default:
			httpReq.Header.Add(h.Name, h.Value)
		}
	}
	return httpReq, nil
}

// printHTTP2Head prints the status and headers, sorted by name since the
// client hands them over as a map.
func (s *Sender) printHTTP2Head(resp *http.Response) []Header {
	s.Console.Banner(labelResponseHeaders)
	s.Console.Println(fmt.Sprintf("%d %s %s", resp.StatusCode, http.StatusText(resp.StatusCode), resp.Proto))

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	var headers []Header
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, value := range resp.Header[name] {
			raw := lower + ": " + value
			headers = append(headers, Header{Name: lower, Value: value, HasValue: true, Raw: raw})
			s.Console.Println(raw)
		}
	}
	return headers
}
