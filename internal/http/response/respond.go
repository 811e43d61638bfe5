package response

import (
	"encoding/json"
	"net/http"

	"github.com/hbotberlin/reservations/pkg/logger"
)

// ErrorBody is the JSON shape of every rejected request.
type ErrorBody struct {
	OK     bool              `json:"ok"`
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

// AcceptedBody covers the accepted-but-not-queued outcomes: honeypot hits
// and dry runs.
type AcceptedBody struct {
	OK     bool `json:"ok"`
	Queued bool `json:"queued"`
	Spam   bool `json:"spam,omitempty"`
	DryRun bool `json:"dryRun,omitempty"`
}

// QueuedBody reports a delivered reservation. IDs are null when the provider
// did not assign them synchronously; ConfirmQueued is false when only the
// operator notice went out.
type QueuedBody struct {
	OK            bool    `json:"ok"`
	Queued        bool    `json:"queued"`
	AdminID       *string `json:"adminId"`
	UserID        *string `json:"userId"`
	ConfirmQueued bool    `json:"confirmQueued"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Queued(w http.ResponseWriter, adminID, userID string, confirmQueued bool) {
	JSON(w, http.StatusOK, QueuedBody{
		OK:            true,
		Queued:        true,
		AdminID:       nullable(adminID),
		UserID:        nullable(userID),
		ConfirmQueued: confirmQueued,
	})
}

// Spam accepts a honeypot hit with a success-shaped body so automated
// clients get no detection signal.
func Spam(w http.ResponseWriter) {
	JSON(w, http.StatusOK, AcceptedBody{OK: true, Queued: false, Spam: true})
}

// DryRun accepts a submission that was not sent because no provider
// credential is configured.
func DryRun(w http.ResponseWriter) {
	JSON(w, http.StatusOK, AcceptedBody{OK: true, Queued: false, DryRun: true})
}

// ValidationError writes the per-field messages. An empty map falls back to
// a single general message.
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	if len(fields) == 0 {
		fields = map[string]string{"general": "Ungültige Eingabe."}
	}
	JSON(w, http.StatusBadRequest, ErrorBody{
		Error:  "Validation error",
		Errors: fields,
	})
}

func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: message})
}

func RateLimited(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, ErrorBody{Error: message})
}

func BadGateway(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadGateway, ErrorBody{Error: message})
}

func InternalError(w http.ResponseWriter, message string) {
	JSON(w, http.StatusInternalServerError, ErrorBody{Error: message})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
