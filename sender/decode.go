package sender

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// analyze runs the decode chain selected by the response headers and prints
// the result. Classification and stream errors are returned; pretty-printing
// failures only fall back to the plain text.
func (s *Sender) analyze(resp *Response, ignoreChunked bool) error {
	body := resp.Body
	d, err := Classify(resp.Headers, ignoreChunked)
	if err != nil {
		return err
	}
	s.Logger.Debug("Response classified",
		zap.Bool("chunked", d.Chunked),
		zap.Bool("gzip", d.Gzip),
		zap.Bool("deflate", d.Deflate),
		zap.Bool("json", d.JSON),
		zap.Bool("xml", d.XML),
		zap.Bool("text", d.Text),
		zap.String("charset", d.Charset))

	if d.Chunked {
		s.Console.Banner(labelChunked)
		if body, err = Dechunk(body); err != nil {
			return err
		}
	}
	if d.Gzip {
		s.Console.Banner(labelGzip)
		if body, err = gunzip(body); err != nil {
			return err
		}
	} else if d.Deflate {
		s.Console.Banner(labelDeflate)
		if body, err = inflate(body); err != nil {
			return err
		}
	}

	if !d.Text {
		s.Console.Banner(labelRaw)
		s.Console.Write(body)
		s.Console.Println()
		s.Console.Banner(labelEnd)
		return nil
	}

	text, err := d.Encoding.NewDecoder().Bytes(body)
	if err != nil {
		return fmt.Errorf("decoding %s text: %w", d.Charset, err)
	}

	switch {
	case d.JSON:
		s.printFormatted(labelJSON, text, formatJSON)
	case d.XML:
		s.printFormatted(labelXML, text, formatXML)
	default:
		s.Console.Banner(labelText)
		s.Console.Println(string(text))
	}
	s.Console.Banner(labelEnd)
	return nil
}

func (s *Sender) printFormatted(label string, text []byte, format func([]byte) (string, error)) {
	s.Console.Banner(label)
	out, err := format(text)
	if err != nil {
		s.Logger.Error("Pretty-print failed", zap.String("format", label), zap.Error(err))
		s.Console.Banner(labelText)
		out = string(text)
	}
	s.Console.Println(out)
}

func gunzip(src []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrStreamCorrupted, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrStreamCorrupted, err)
	}
	return out, nil
}

// inflate handles "deflate" bodies, which are zlib streams per RFC 9110 but
// are raw DEFLATE data from some servers.
func inflate(src []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err == nil {
		defer zr.Close()
		out, rerr := io.ReadAll(zr)
		if rerr == nil {
			return out, nil
		}
		err = rerr
	}
	if !errors.Is(err, zlib.ErrHeader) {
		return nil, fmt.Errorf("%w: deflate: %w", ErrStreamCorrupted, err)
	}

	fr := flate.NewReader(bytes.NewReader(src))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: deflate: %w", ErrStreamCorrupted, err)
	}
	return out, nil
}

func formatJSON(text []byte) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(text), "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// formatXML re-indents a document by four spaces, dropping whitespace-only
// text between elements. Prefixed names are kept as written.
func formatXML(text []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(text))
	dec.Strict = true
	// text is already decoded from the response charset.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var out strings.Builder
	enc := xml.NewEncoder(&out)
	enc.Indent("", "    ")

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
		case xml.StartElement:
			t.Name = flatName(t.Name)
			attrs := make([]xml.Attr, len(t.Attr))
			for i, a := range t.Attr {
				attrs[i] = xml.Attr{Name: flatName(a.Name), Value: a.Value}
			}
			t.Attr = attrs
			tok = t
		case xml.EndElement:
			t.Name = flatName(t.Name)
			tok = t
		}

		if err := enc.EncodeToken(tok); err != nil {
			return "", err
		}
		// The encoder does not indent after prologue tokens.
		switch tok.(type) {
		case xml.ProcInst, xml.Directive:
			if err := enc.EncodeToken(xml.CharData("\n")); err != nil {
				return "", err
			}
		}
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	if out.Len() == 0 {
		return "", errors.New("empty XML document")
	}
	return out.String(), nil
}

// flatName folds a raw "prefix:local" name back into Local so the encoder
// writes it verbatim instead of inventing namespace declarations.
func flatName(n xml.Name) xml.Name {
	if n.Space == "" {
		return n
	}
	return xml.Name{Local: n.Space + ":" + n.Local}
}
