package sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"
)

// InsecureTLSConfig accepts any server certificate. The tool debugs arbitrary
// and self-signed endpoints; pass the result to New explicitly, never install
// it as a default.
func InsecureTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
	}
}

// clientTLSConfig returns a per-connection copy of the configured TLS settings.
func (s *Sender) clientTLSConfig(host string, nextProtos ...string) *tls.Config {
	var cfg *tls.Config
	if s.opts.TLSConfig != nil {
		cfg = s.opts.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	if len(nextProtos) > 0 {
		cfg.NextProtos = nextProtos
	}
	return cfg
}

// dial connects to the request's target, wrapping the connection in TLS when
// the request asks for it.
func (s *Sender) dial(ctx context.Context, req *Request) (net.Conn, error) {
	target := net.JoinHostPort(req.Host, strconv.Itoa(req.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}
	if !req.TLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, s.clientTLSConfig(req.Host, "http/1.1"))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	state := tlsConn.ConnectionState()
	s.Logger.Debug("TLS established",
		zap.String("target", target),
		zap.String("version", tls.VersionName(state.Version)),
		zap.String("cipher", tls.CipherSuiteName(state.CipherSuite)))
	return tlsConn, nil
}
