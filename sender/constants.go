package sender

const (
	DefaultEchoLimit     = 1000
	DefaultBodyEchoLimit = 500

	// Unbounded disables the echo cap of a MirroredSink.
	Unbounded = -1

	bannerWidth = 60

	// escape is what terminals send for Alt+Enter; a line ending in it is sent immediately.
	escape = '\x1b'
)

var (
	lineSeparator   = []byte("\r\n")
	headerSeparator = []byte("\r\n\r\n")
)

// Banner labels printed between sections of the dump.
const (
	labelSendingRequest   = "SENDING REQUEST"
	labelRequestSent      = "REQUEST SENT"
	labelResponseReceived = "RESPONSE RECEIVED"
	labelResponseHeaders  = "RESPONSE HEADERS"
	labelResponseBody     = "RESPONSE BODY"
	labelNoBody           = "RESPONSE HAS NO BODY"
	labelChunked          = "CONVERTING FROM CHUNKED FORMAT"
	labelGzip             = "UNGZIPPING"
	labelDeflate          = "UNDEFLATING"
	labelJSON             = "JSON"
	labelXML              = "XML"
	labelText             = "TEXT"
	labelRaw              = "RAW"
	labelEnd              = "END"
)

const Usage = `Usage:

Start the tool, enter text to send, press Alt+Enter (or close the input).
The tool parses the request and sends it to the host and path taken from it:
for HTTP/1.1 the "Host" header and the request line, for HTTP/2 the
":authority", ":method", ":path" and ":scheme" pseudo-headers. The port is
taken from the host when present, otherwise 443 is used for TLS and 80
without it.

Params:
`
