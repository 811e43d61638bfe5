package service

import (
	"context"
	"errors"
	"time"

	"github.com/hbotberlin/reservations/internal/domain"
	"github.com/hbotberlin/reservations/internal/platform/mailer"
	"github.com/hbotberlin/reservations/pkg/config"
	"github.com/hbotberlin/reservations/pkg/logger"
)

// ErrDispatchFailed means neither the batch nor the operator-only fallback
// reached the provider. The lead is lost; the caller gets a hard failure.
var ErrDispatchFailed = errors.New("reservation dispatch failed")

// Outcome describes how far a dispatch got. AdminID and UserID hold
// provider-assigned message IDs when the provider returned them.
type Outcome struct {
	Queued        bool
	DryRun        bool
	AdminID       string
	UserID        string
	ConfirmQueued bool
}

// Dispatcher sends the operator notification and the customer acknowledgment
// for an accepted reservation. Delivery strategy: one batched send, a single
// fixed-delay retry when the provider rate-limits the batch, then an
// operator-only fallback so the lead survives a degraded batch endpoint.
type Dispatcher struct {
	cfg      config.EmailConfig
	provider mailer.Provider
	sleep    func(time.Duration)
}

// NewDispatcher wires a dispatcher. A nil provider puts it in dry-run mode;
// valid submissions are accepted but nothing is sent.
func NewDispatcher(cfg config.EmailConfig, provider mailer.Provider) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		provider: provider,
		sleep:    time.Sleep,
	}
}

// Configured reports whether a provider credential is wired in.
func (d *Dispatcher) Configured() bool {
	return d.provider != nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, r *domain.Reservation, sourceIP string) (*Outcome, error) {
	if d.provider == nil {
		logger.WarnContext(ctx, "MAILERSEND_API_KEY not set, dry run only",
			"to", d.cfg.OperatorTo,
			"subject", operatorSubject,
		)
		return &Outcome{DryRun: true}, nil
	}

	admin := buildOperatorEmail(d.cfg, r, sourceIP)
	user := buildCustomerEmail(d.cfg, r)
	batch := []*mailer.Message{admin, user}

	ids, err := d.provider.SendBatch(ctx, batch)
	if mailer.IsRateLimited(err) {
		logger.WarnContext(ctx, "provider rate limited batch send, retrying once",
			"delay", d.cfg.RetryDelay,
		)
		d.sleep(d.cfg.RetryDelay)
		ids, err = d.provider.SendBatch(ctx, batch)
	}
	if err == nil {
		out := &Outcome{Queued: true, ConfirmQueued: true}
		if len(ids) > 0 {
			out.AdminID = ids[0]
		}
		if len(ids) > 1 {
			out.UserID = ids[1]
		}
		return out, nil
	}

	logger.ErrorContext(ctx, "batch send failed, falling back to operator-only delivery",
		"error", err,
	)

	id, ferr := d.provider.SendOne(ctx, admin)
	if ferr != nil {
		logger.ErrorContext(ctx, "operator-only fallback failed", "error", ferr)
		return nil, ErrDispatchFailed
	}

	return &Outcome{Queued: true, AdminID: id, ConfirmQueued: false}, nil
}
