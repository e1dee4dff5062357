package sender

import (
	"crypto/tls"
	"time"

	"go.uber.org/zap"
)

// Protocol is the HTTP flavor a template was classified as.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	HTTP1
	HTTP2
)

func (p Protocol) String() string {
	switch p {
	case HTTP1:
		return "HTTP/1.1"
	case HTTP2:
		return "HTTP/2"
	default:
		return "unknown"
	}
}

// Header is one header line of a template or a response. Raw keeps the line
// exactly as typed so it can be retransmitted unchanged.
type Header struct {
	Name     string
	Value    string
	HasValue bool
	Raw      string
}

// Request is a parsed template, ready to be sent once.
type Request struct {
	Protocol    Protocol
	Method      string
	Path        string
	Host        string
	Port        int
	TLS         bool
	RequestLine string
	Headers     []Header
	Body        []byte
}

// Response is what came back for a Request, body still undecoded.
type Response struct {
	Proto      string
	StatusCode int
	Status     string
	Headers    []Header
	Body       []byte
}

// Options configures a Sender.
type Options struct {
	// TLSConfig is used for every TLS connection. Build it explicitly, e.g.
	// with InsecureTLSConfig; nil means certificates are verified normally.
	TLSConfig *tls.Config

	// EchoLimit caps how many raw HTTP/1.1 response bytes are echoed live.
	EchoLimit int

	// BodyEchoLimit caps how many HTTP/2 body bytes are echoed before decoding.
	BodyEchoLimit int

	// Timeout bounds dialing and the whole exchange. Zero waits forever.
	Timeout time.Duration
}

type Sender struct {
	Logger  *zap.Logger
	Console *Console
	opts    Options
}
