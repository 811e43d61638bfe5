package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hbotberlin/reservations/internal/domain"
	mw "github.com/hbotberlin/reservations/internal/http/middleware"
	"github.com/hbotberlin/reservations/internal/http/response"
	"github.com/hbotberlin/reservations/internal/service"
	"github.com/hbotberlin/reservations/pkg/config"
	"github.com/hbotberlin/reservations/pkg/logger"
)

type ReservationHandler struct {
	dispatcher *service.Dispatcher
	cfg        *config.Config
}

func NewReservationHandler(dispatcher *service.Dispatcher, cfg *config.Config) *ReservationHandler {
	return &ReservationHandler{
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// Create runs the submission pipeline: parse, schema validation, honeypot,
// start-week rule, dispatch. Rate limiting happens in middleware before the
// body is read.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := mw.ClientIP(r)

	var in domain.ReservationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON")
		return
	}

	res, errs := in.Validate()
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	// Filled honeypot: absorb silently with a success-shaped body.
	if in.Honeypot() {
		logger.WarnContext(ctx, "honeypot tripped, absorbing submission", "ip", ip)
		response.Spam(w)
		return
	}

	if errs := res.CheckStartWeek(); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	out, err := h.dispatcher.Dispatch(ctx, res, ip)
	if err != nil {
		if errors.Is(err, service.ErrDispatchFailed) {
			response.BadGateway(w, "Mail send failed")
			return
		}
		logger.ErrorContext(ctx, "unexpected dispatch error", "error", err)
		response.InternalError(w, "Internal error")
		return
	}

	if out.DryRun {
		response.DryRun(w)
		return
	}

	logger.InfoContext(ctx, "reservation queued",
		"admin_id", out.AdminID,
		"user_id", out.UserID,
		"confirm_queued", out.ConfirmQueued,
	)
	response.Queued(w, out.AdminID, out.UserID, out.ConfirmQueued)
}

type diagnosticsBody struct {
	OK        bool   `json:"ok"`
	Provider  bool   `json:"provider"`
	To        string `json:"to"`
	FromAdmin string `json:"fromAdmin"`
	FromUser  string `json:"fromUser"`
	Env       string `json:"env"`
}

// Diagnostics answers GET on the reservation path with a lightweight
// operational snapshot. It never exposes the credential itself.
func (h *ReservationHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, diagnosticsBody{
		OK:        true,
		Provider:  h.dispatcher.Configured(),
		To:        h.cfg.Email.OperatorTo,
		FromAdmin: h.cfg.Email.FromAdmin.Email,
		FromUser:  h.cfg.Email.FromUser.Email,
		Env:       h.cfg.App.Environment,
	})
}
