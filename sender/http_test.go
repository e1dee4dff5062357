package sender

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSendHTTP1_Chunked(t *testing.T) {
	response := "HTTP/1.1 200 OK\r\n" +
		"transfer-encoding: chunked\r\n" +
		"connection: close\r\n" +
		"\r\n" +
		"15\r\n" +
		"zzz123\n456789\r\nqwerty\r\n" +
		"0\r\n" +
		"\r\n"
	host, port, captured := setupPeer(t, response)

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port, "Connection: close")))

	got := <-captured
	require.NoError(t, got.err)
	require.Equal(t, "GET", got.req.Method)
	require.Equal(t, "/test", got.req.URL.Path)

	output := out.String()
	require.True(t, strings.HasPrefix(output, banners("Protocol: HTTP/1.1", labelSendingRequest)+
		"GET /test HTTP/1.1\r\nHost: "+host+"\r\nConnection: close\r\n\r\n"), output)
	require.Contains(t, output, response)
	require.Equal(t, banners(labelChunked, labelRaw)+
		"zzz123\n456789\r\nqwerty\n"+
		banners(labelEnd), afterReceived(t, output))
}

func TestSendHTTP1_Gzip(t *testing.T) {
	body := gzipped(t, "TEST_TEST_TEST")
	response := fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"content-encoding: gzip\r\n"+
		"content-length: %d\r\n"+
		"connection: close\r\n"+
		"\r\n%s", len(body), body)
	host, port, _ := setupPeer(t, response)

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port, "Accept-Encoding: gzip")))

	require.Equal(t, banners(labelGzip, labelRaw)+
		"TEST_TEST_TEST\n"+
		banners(labelEnd), afterReceived(t, out.String()))
}

func TestSendHTTP1_JSON(t *testing.T) {
	body := `{"zeta":1,"alpha":[1,2,3],"value1":null}`
	response := "HTTP/1.1 200 OK\r\n" +
		"content-type: application/json; charset=utf-8\r\n" +
		"content-length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" + body
	host, port, _ := setupPeer(t, response)

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port)))

	want := "{\n" +
		"  \"zeta\": 1,\n" +
		"  \"alpha\": [\n" +
		"    1,\n" +
		"    2,\n" +
		"    3\n" +
		"  ],\n" +
		"  \"value1\": null\n" +
		"}\n"
	require.Equal(t, banners(labelJSON)+want+banners(labelEnd), afterReceived(t, out.String()))
}

func TestSendHTTP1_NoContent(t *testing.T) {
	host, port, _ := setupPeer(t, "HTTP/1.1 204 No Content\r\nconnection: close\r\n\r\n")

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port)))

	require.Equal(t, banners(labelRaw)+"\n"+banners(labelEnd), afterReceived(t, out.String()))
}

func TestSendHTTP1_UnsupportedCharset(t *testing.T) {
	host, port, _ := setupPeer(t, "HTTP/1.1 200 OK\r\n"+
		"content-type: text/plain; charset=klingon\r\n"+
		"content-length: 5\r\n"+
		"\r\nhello")

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port)))

	require.Empty(t, afterReceived(t, out.String()))
}

func TestSendHTTP1_MalformedChunks(t *testing.T) {
	host, port, _ := setupPeer(t, "HTTP/1.1 200 OK\r\n"+
		"transfer-encoding: chunked\r\n"+
		"\r\n"+
		"ff\r\nshort\r\n")

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port)))

	require.Equal(t, banners(labelChunked), afterReceived(t, out.String()))
}

func TestSendHTTP1_NoHeaderBoundary(t *testing.T) {
	host, port, _ := setupPeer(t, "garbage without headers")

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port)))

	require.Empty(t, afterReceived(t, out.String()))
}

func TestSendHTTP1_ContentLengthRewritten(t *testing.T) {
	host, port, captured := setupPeer(t, "HTTP/1.1 204 No Content\r\n\r\n")

	req := http1Request(host, port, "Content-Length: 999")
	req.Method, req.RequestLine = "POST", "POST /test HTTP/1.1"
	req.Body = []byte("TEST_TEST_TEST")

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), req))

	got := <-captured
	require.NoError(t, got.err)
	require.Equal(t, "POST", got.req.Method)
	require.Equal(t, int64(14), got.req.ContentLength)
	require.Equal(t, "TEST_TEST_TEST", string(got.body))
	require.Contains(t, out.String(), "Content-Length: 14\r\n\r\nTEST_TEST_TEST")
}

func TestSendHTTP1_EchoLimit(t *testing.T) {
	body := strings.Repeat("x", 2000)
	response := "HTTP/1.1 200 OK\r\n" +
		"content-type: text/plain\r\n" +
		"content-length: 2000\r\n" +
		"\r\n" + body
	host, port, _ := setupPeer(t, response)

	opts := defaultTestOptions()
	opts.EchoLimit = 20
	s, out := newTestSender(t, opts)
	require.NoError(t, s.Send(context.Background(), http1Request(host, port)))

	output := out.String()
	require.Contains(t, output, response[:20]+"\n[... cropped data over the length of 20 ...]")
	require.Equal(t, banners(labelText)+body+"\n"+banners(labelEnd), afterReceived(t, output))
}

func TestSendHTTP1_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<root> <tag1> text &lt;&amp;&gt; </tag1><tag2 attr1="attr2value"><tag3>v</tag3></tag2></root>`))
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().(*net.TCPAddr)
	req := http1Request(addr.IP.String(), addr.Port, "Connection: close")
	req.TLS = true

	s, out := newTestSender(t, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), req))

	want := "<root>\n" +
		"    <tag1> text &lt;&amp;&gt; </tag1>\n" +
		"    <tag2 attr1=\"attr2value\">\n" +
		"        <tag3>v</tag3>\n" +
		"    </tag2>\n" +
		"</root>\n"
	require.Equal(t, banners(labelXML)+want+banners(labelEnd), afterReceived(t, out.String()))
}

func TestSendHTTP1_ConnectFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	s, out := newTestSender(t, defaultTestOptions())
	err = s.Send(context.Background(), http1Request(addr.IP.String(), addr.Port))
	require.Error(t, err)
	require.NotContains(t, out.String(), BannerText(labelSendingRequest))
}

func TestSendHTTP1_Timeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	release := make(chan struct{})
	defer close(release)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}()

	addr := listener.Addr().(*net.TCPAddr)
	opts := defaultTestOptions()
	opts.Timeout = 200 * time.Millisecond
	s, _ := newTestSender(t, opts)

	err = s.Send(context.Background(), http1Request(addr.IP.String(), addr.Port))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseResponse(t *testing.T) {
	raw := []byte("HTTP/1.1 404 Not Found\r\nContent-Type: text/plain\r\nX-Empty:\r\nbroken line\r\n\r\nbody\r\n\r\nmore")

	resp, err := parseResponse(raw)
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1", resp.Proto)
	require.Equal(t, 404, resp.StatusCode)
	require.Equal(t, "Not Found", resp.Status)
	require.Equal(t, []Header{
		{Name: "Content-Type", Value: "text/plain", HasValue: true, Raw: "Content-Type: text/plain"},
		{Name: "X-Empty", Value: "", HasValue: true, Raw: "X-Empty:"},
	}, resp.Headers)
	require.Equal(t, "body\r\n\r\nmore", string(resp.Body))

	_, err = parseResponse([]byte("HTTP/1.1 200 OK\r\n"))
	require.ErrorIs(t, err, ErrNoHeaderBoundary)
}

func TestSendHTTP1_BrokenConsole(t *testing.T) {
	body := strings.Repeat("z", 3*readBufferSize)
	host, port, captured := setupPeer(t, "HTTP/1.1 200 OK\r\n"+
		"content-type: text/plain\r\n"+
		"\r\n"+body)

	core, logs := observer.New(zapcore.DebugLevel)
	console := NewConsole(failingWriter{errors.New("stdout closed")}, false)
	s := New(zap.New(core), console, defaultTestOptions())
	require.NoError(t, s.Send(context.Background(), http1Request(host, port)))

	got := <-captured
	require.NoError(t, got.err)
	require.Equal(t, "/test", got.req.URL.Path)

	// One entry for the request echo, one for the whole response echo.
	echoLogs := logs.FilterMessage("Console echo failed").All()
	require.Len(t, echoLogs, 2)
	for _, entry := range echoLogs {
		require.Equal(t, "stdout closed", entry.ContextMap()["error"])
	}
}
