package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies why a delivery failed.
type Kind string

const (
	KindMissingConfig Kind = "missing_config"
	KindTimeout       Kind = "timeout"
	KindConnection    Kind = "connection"
	KindHTTP          Kind = "http_error"
	KindAPI           Kind = "api_error"
	KindMalformed     Kind = "malformed_response"
	KindUnexpected    Kind = "unexpected"
)

var (
	ErrMissingToken  = errors.New("telegram bot token is not set")
	ErrMissingChatID = errors.New("telegram chat id is not set")
)

// Error is returned by every Notifier implementation on failure.
type Error struct {
	Kind       Kind
	StatusCode int // HTTP status, when one was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notify %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("notify %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return KindUnexpected
}

// classifyTransport maps a client-side transport failure to a Kind.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindUnexpected
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return KindConnection
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection") {
		return KindConnection
	}
	return KindUnexpected
}

// redact strips secret from err's message. The token is part of the Bot API URL
// and would otherwise end up in logs.
func redact(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, secret) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, secret, "<redacted>"))
}
