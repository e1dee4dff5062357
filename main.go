package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mohamedbeat/hsend/logger"
	"github.com/mohamedbeat/hsend/sender"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// exitUsage is returned for unknown or malformed arguments.
const exitUsage = 100

type config struct {
	tls           bool
	http2         bool
	verbose       bool
	noColor       bool
	echoLimit     int
	bodyEchoLimit int
	timeout       time.Duration
}

func (c config) protocol() sender.Protocol {
	if c.http2 {
		return sender.HTTP2
	}
	return sender.ProtocolUnknown
}

func parseConfig(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("hsend", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, sender.Usage)
		fs.PrintDefaults()
	}
	fs.BoolVar(&cfg.tls, "tls", false, "use TLS even if the template does not ask for it")
	fs.BoolVar(&cfg.http2, "h2", false, "send as HTTP/2 regardless of the template's first line")
	fs.BoolVar(&cfg.verbose, "v", false, "log at debug level")
	fs.BoolVar(&cfg.noColor, "no-color", false, "never color banners")
	fs.IntVar(&cfg.echoLimit, "echo-limit", sender.DefaultEchoLimit, "raw HTTP/1.1 response bytes echoed live, -1 for all")
	fs.IntVar(&cfg.bodyEchoLimit, "body-limit", sender.DefaultBodyEchoLimit, "HTTP/2 body bytes echoed before decoding, -1 for all")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "give up on the exchange after this long, 0 waits forever")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected argument %q\n", fs.Arg(0))
		fs.Usage()
		return cfg, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if cfg.echoLimit < sender.Unbounded || cfg.bodyEchoLimit < sender.Unbounded {
		return cfg, errors.New("echo limits must be -1 or greater")
	}
	return cfg, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(exitUsage)
	}

	level := zapcore.InfoLevel
	if cfg.verbose {
		level = zapcore.DebugLevel
	}
	logg, err := logger.InitLogger(level)
	if err != nil {
		log.Fatal("Error initializing logger:", err)
	}
	defer logg.Sync()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, "Enter the request, finish with Alt+Enter or Ctrl+D:")
	}

	req, err := sender.ParseTemplate(os.Stdin, cfg.protocol(), cfg.tls)
	if err != nil {
		logg.Fatal("Invalid request template", zap.Error(err))
	}

	colored := !cfg.noColor && isatty.IsTerminal(os.Stdout.Fd())
	s := sender.New(logg, sender.NewConsole(os.Stdout, colored), sender.Options{
		TLSConfig:     sender.InsecureTLSConfig(),
		EchoLimit:     cfg.echoLimit,
		BodyEchoLimit: cfg.bodyEchoLimit,
		Timeout:       cfg.timeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := s.Send(ctx, req); err != nil {
		logg.Fatal("Request failed", zap.Error(err))
	}
}
