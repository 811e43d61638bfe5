package mailer

import (
	"context"
	"errors"
	"fmt"
)

// Message is a provider-neutral email payload.
type Message struct {
	FromName  string
	FromEmail string
	ToName    string
	ToEmail   string
	ReplyTo   string
	Subject   string
	Text      string
	HTML      string
}

// Provider sends email through a transactional email service. SendBatch
// delivers all messages in a single provider call; the returned IDs line up
// with the input order when the provider assigns them synchronously, and may
// be empty otherwise.
type Provider interface {
	SendBatch(ctx context.Context, msgs []*Message) ([]string, error)
	SendOne(ctx context.Context, msg *Message) (string, error)
}

// ErrKind is the closed set of failure categories a provider call can
// produce. Branching logic must only ever inspect these, never raw provider
// responses.
type ErrKind int

const (
	// KindRateLimited is the provider telling us to slow down; the one
	// retryable kind.
	KindRateLimited ErrKind = iota + 1
	// KindRejected covers every other non-2xx provider response.
	KindRejected
	// KindTransport covers network-level failures before any provider
	// response was read.
	KindTransport
)

func (k ErrKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindRejected:
		return "rejected"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ProviderError narrows an arbitrary provider failure into an ErrKind.
type ProviderError struct {
	Kind   ErrKind
	Status int
	Detail string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("mail provider %s: status=%d %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("mail provider %s: %s", e.Kind, e.Detail)
}

// IsRateLimited reports whether err is a provider rate-limit rejection.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindRateLimited
}
