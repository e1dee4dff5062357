package sender

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

type parseState int

const (
	stateFirstLine parseState = iota
	stateHeaders
	stateBody
	stateDone
)

// TemplateParser builds a Request from a template fed to it line by line.
type TemplateParser struct {
	state    parseState
	req      Request
	hostPort string
	body     []byte
	hasBody  bool
}

// NewTemplateParser starts a parser. A forced protocol skips request line
// detection; forceTLS preselects TLS (":scheme: https" can still turn it on).
func NewTemplateParser(forced Protocol, forceTLS bool) *TemplateParser {
	p := &TemplateParser{state: stateFirstLine}
	if forced != ProtocolUnknown {
		p.req.Protocol = forced
		p.state = stateHeaders
	}
	p.req.TLS = forceTLS
	return p
}

// Feed processes one line without its terminator. It reports true once the
// template is complete, i.e. the line ended with the Alt+Enter escape.
func (p *TemplateParser) Feed(line string) (bool, error) {
	if p.state == stateDone {
		return true, nil
	}

	sendNow := false
	if strings.HasSuffix(line, string(escape)) {
		line = line[:len(line)-1]
		sendNow = true
	}

	if err := p.feed(line); err != nil {
		return false, err
	}
	if sendNow {
		p.state = stateDone
	}
	return sendNow, nil
}

func (p *TemplateParser) feed(line string) error {
	switch p.state {
	case stateFirstLine:
		p.state = stateHeaders
		if p.requestLine(line) {
			return nil
		}
		// Anything else is already part of the header section.
		return p.feed(line)
	case stateHeaders:
		if line == "" {
			p.state = stateBody
			return nil
		}
		return p.header(line)
	case stateBody:
		p.body = append(p.body, line...)
		p.hasBody = true
		return nil
	case stateDone:
		return nil
	default:
		return fmt.Errorf("unknown parser state %d", p.state)
	}
}

func (p *TemplateParser) requestLine(line string) bool {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/") {
		return false
	}
	p.req.Method = strings.TrimSpace(parts[0])
	p.req.Path = strings.TrimSpace(parts[1])
	p.req.Protocol = HTTP1
	p.req.RequestLine = line
	return true
}

func (p *TemplateParser) header(line string) error {
	h := splitHeader(line)

	switch strings.ToLower(h.Name) {
	case ":authority":
		if err := p.pseudo(h); err != nil {
			return err
		}
		p.hostPort = h.Value
	case "host":
		p.hostPort = h.Value
		p.req.Headers = append(p.req.Headers, h)
	case ":scheme":
		if err := p.pseudo(h); err != nil {
			return err
		}
		if strings.EqualFold(h.Value, "https") {
			p.req.TLS = true
		}
	case ":method":
		if err := p.pseudo(h); err != nil {
			return err
		}
		p.req.Method = h.Value
	case ":path":
		if err := p.pseudo(h); err != nil {
			return err
		}
		p.req.Path = h.Value
	default:
		p.req.Headers = append(p.req.Headers, h)
	}
	return nil
}

// pseudo switches the template to HTTP/2. A request line already fixed
// HTTP/1.1, and the two cannot be mixed.
func (p *TemplateParser) pseudo(h Header) error {
	switch p.req.Protocol {
	case ProtocolUnknown, HTTP2:
		p.req.Protocol = HTTP2
		return nil
	case HTTP1:
		return fmt.Errorf("%w: %s", ErrProtocolConflict, h.Name)
	default:
		return fmt.Errorf("unknown protocol %d", p.req.Protocol)
	}
}

// splitHeader splits on the first colon that is not the leading one of a
// pseudo-header name.
func splitHeader(line string) Header {
	h := Header{Raw: line}
	idx := -1
	if len(line) > 1 {
		if i := strings.IndexByte(line[1:], ':'); i != -1 {
			idx = i + 1
		}
	}
	if idx == -1 {
		h.Name = strings.TrimSpace(line)
		return h
	}
	h.Name = strings.TrimSpace(line[:idx])
	h.Value = strings.TrimSpace(line[idx+1:])
	h.HasValue = true
	return h
}

// Finish validates the collected fields and returns the request.
func (p *TemplateParser) Finish() (*Request, error) {
	if p.req.Protocol == ProtocolUnknown {
		return nil, &TemplateError{Field: "protocol", Source: "not detected from the request line or pseudo-headers and not set explicitly"}
	}
	if p.hostPort == "" {
		return nil, &TemplateError{Field: "host", Source: "Host header (HTTP/1.1) or :authority pseudo-header (HTTP/2) is required"}
	}
	if p.req.Path == "" {
		return nil, &TemplateError{Field: "path", Source: "expected in the request line (HTTP/1.1) or the :path pseudo-header (HTTP/2)"}
	}
	if p.req.Method == "" {
		return nil, &TemplateError{Field: "method", Source: "expected in the request line (HTTP/1.1) or the :method pseudo-header (HTTP/2)"}
	}

	host, port, err := splitHostPort(p.hostPort)
	if err != nil {
		return nil, err
	}
	if port == 0 {
		port = 80
		if p.req.TLS {
			port = 443
		}
	}

	req := p.req
	req.Host = host
	req.Port = port
	if p.hasBody {
		req.Body = p.body
	}
	return &req, nil
}

// splitHostPort parses host[:port]; a zero port means none was given.
func splitHostPort(value string) (string, int, error) {
	host, portText, err := net.SplitHostPort(value)
	if err != nil {
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) && addrErr.Err == "missing port in address" {
			return strings.Trim(value, "[]"), 0, nil
		}
		return "", 0, fmt.Errorf("invalid host %q: %w", value, err)
	}
	if host == "" {
		return "", 0, &TemplateError{Field: "host", Source: fmt.Sprintf("%q has no host name", value)}
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in host %q", value)
	}
	return host, port, nil
}

// ParseTemplate reads a template from r until EOF or an Alt+Enter line.
// Lines are handled as soon as they are complete so a template can be typed
// interactively.
func ParseTemplate(r io.Reader, forced Protocol, forceTLS bool) (*Request, error) {
	p := NewTemplateParser(forced, forceTLS)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading template: %w", err)
		}
		eof := err == io.EOF
		if eof && line == "" {
			break
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		done, ferr := p.Feed(line)
		if ferr != nil {
			return nil, ferr
		}
		if done || eof {
			break
		}
	}
	return p.Finish()
}
