package sender

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func New(logger *zap.Logger, console *Console, opts Options) *Sender {
	return &Sender{Logger: logger.Named("sender"), Console: console, opts: opts}
}

// Send performs the single request/response exchange described by req.
// Only failures to deliver the request are returned; a response that cannot
// be read or decoded is logged and the run still counts as completed.
func (s *Sender) Send(ctx context.Context, req *Request) error {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	s.Console.Banner("Protocol: " + req.Protocol.String())
	s.Logger.Info("Sending request",
		zap.Stringer("protocol", req.Protocol),
		zap.String("method", req.Method),
		zap.String("host", req.Host),
		zap.Int("port", req.Port),
		zap.String("path", req.Path),
		zap.Bool("tls", req.TLS))

	switch req.Protocol {
	case HTTP1:
		return s.sendHTTP1(ctx, req)
	case HTTP2:
		return s.sendHTTP2(ctx, req)
	default:
		return fmt.Errorf("unsupported protocol %v", req.Protocol)
	}
}

// reportResponseError is where response-side failures end: they are logged
// and deliberately not returned.
func (s *Sender) reportResponseError(err error) {
	if err == nil {
		return
	}
	s.Logger.Error("Failed to parse and print response", zap.Error(err))
}

// echoErrorLogger returns a func that logs the first console echo failure of
// one output operation. A broken console never aborts the exchange.
func (s *Sender) echoErrorLogger() func(error) {
	logged := false
	return func(err error) {
		if err == nil || logged {
			return
		}
		logged = true
		s.Logger.Debug("Console echo failed", zap.Error(err))
	}
}
