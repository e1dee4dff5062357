package sender

import (
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Decision lists the decode steps a response body needs, derived from its headers.
type Decision struct {
	Chunked bool
	Gzip    bool
	Deflate bool
	Text    bool
	JSON    bool
	XML     bool

	Charset  string
	Encoding encoding.Encoding
}

// Classify inspects response headers. ignoreChunked is set when the transport
// already removed the transfer framing, as the HTTP/2 client does.
func Classify(headers []Header, ignoreChunked bool) (Decision, error) {
	var d Decision
	for _, h := range headers {
		name := strings.ToLower(strings.TrimSpace(h.Name))
		value := strings.ToLower(strings.TrimSpace(h.Value))

		switch name {
		case "transfer-encoding":
			if value == "chunked" && !ignoreChunked {
				d.Chunked = true
			}
		case "content-encoding":
			switch value {
			case "gzip", "x-gzip":
				d.Gzip = true
			case "deflate":
				d.Deflate = true
			}
		case "content-type":
			if err := d.contentType(value); err != nil {
				return Decision{}, err
			}
		}
	}

	if d.Text && d.Encoding == nil {
		d.Charset, d.Encoding = "utf-8", lookupCharset("utf-8")
	}
	return d, nil
}

func (d *Decision) contentType(value string) error {
	params := strings.Split(value, ";")
	mediaType := strings.TrimSpace(params[0])

	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		d.JSON, d.Text = true, true
	case mediaType == "application/xml", mediaType == "text/xml",
		mediaType == "application/soap+xml", strings.HasSuffix(mediaType, "+xml"):
		d.XML, d.Text = true, true
	}
	if strings.HasPrefix(mediaType, "text/") {
		d.Text = true
	}

	for _, param := range params[1:] {
		param = strings.TrimSpace(param)
		label, ok := strings.CutPrefix(param, "charset=")
		if !ok {
			continue
		}
		label = strings.Trim(label, `"'`)
		enc := lookupCharset(label)
		if enc == nil {
			return &UnsupportedCharsetError{Charset: label}
		}
		d.Charset, d.Encoding = label, enc
	}
	return nil
}

// lookupCharset resolves an IANA charset name. The HTML label table only
// fills in aliases IANA does not know, since it maps e.g. iso-8859-1 to
// windows-1252.
func lookupCharset(label string) encoding.Encoding {
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		return enc
	}
	enc, _ := charset.Lookup(label)
	return enc
}
