package domain

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/hbotberlin/reservations/internal/utils"
)

const (
	NameMinLen    = 2
	NameMaxLen    = 120
	PhoneMaxLen   = 60
	MessageMaxLen = 4000
)

// CutoffYear/CutoffWeek is the earliest start week a reservation may ask for.
const (
	CutoffYear = 2026
	CutoffWeek = 1
)

var weekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ReservationInput is the raw submission body. Optional fields are pointers
// so that JSON null and an absent key look the same after decoding.
type ReservationInput struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	StartWeek *string `json:"startWeek"`
	Message   *string `json:"message"`
	Consent   bool    `json:"consent"`
	// Company is the honeypot; humans never see the field.
	Company *string `json:"company"`
}

// Reservation is a validated, normalized submission. Optional fields are
// empty strings when absent.
type Reservation struct {
	Name      string
	Email     string
	Phone     string
	StartWeek string
	Message   string
	Consent   bool
}

// FieldErrors maps a field name to its single validation message.
type FieldErrors map[string]string

// Honeypot reports whether the hidden company field was filled in.
func (in *ReservationInput) Honeypot() bool {
	return in.Company != nil && *in.Company != ""
}

// Validate normalizes the input and checks every schema constraint. It
// returns either a Reservation or one message per violated field. The
// honeypot is deliberately not a validation concern.
func (in *ReservationInput) Validate() (*Reservation, FieldErrors) {
	errs := FieldErrors{}

	name := utils.NormalizeString(in.Name)
	if n := utf8.RuneCountInString(name); n < NameMinLen || n > NameMaxLen {
		errs["name"] = "Bitte geben Sie Ihren Namen an (2–120 Zeichen)."
	}

	email := utils.NormalizeEmail(in.Email)
	if !utils.IsValidEmail(email) {
		errs["email"] = "Bitte geben Sie eine gültige E-Mail-Adresse an."
	}

	phone := optional(in.Phone)
	if utf8.RuneCountInString(phone) > PhoneMaxLen {
		errs["phone"] = "Die Telefonnummer darf höchstens 60 Zeichen lang sein."
	}

	startWeek := optional(in.StartWeek)
	if startWeek != "" && !weekPattern.MatchString(startWeek) {
		errs["startWeek"] = "Die Startwoche muss das Format JJJJ-W## haben."
	}

	message := optional(in.Message)
	if utf8.RuneCountInString(message) > MessageMaxLen {
		errs["message"] = "Die Nachricht darf höchstens 4000 Zeichen lang sein."
	}

	if !in.Consent {
		errs["consent"] = "Einwilligung erforderlich."
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &Reservation{
		Name:      name,
		Email:     email,
		Phone:     phone,
		StartWeek: startWeek,
		Message:   message,
		Consent:   in.Consent,
	}, nil
}

// CheckStartWeek enforces the business rule: an absent start week is always
// fine, a present one must be the cutoff week or later.
func (r *Reservation) CheckStartWeek() FieldErrors {
	if r.StartWeek == "" {
		return nil
	}
	if !WeekOnOrAfterCutoff(r.StartWeek) {
		return FieldErrors{"startWeek": "Startwoche erst ab 2026-W01 erlaubt."}
	}
	return nil
}

// WeekOnOrAfterCutoff parses an ISO-week identifier and compares it against
// the cutoff. Malformed input counts as before the cutoff.
func WeekOnOrAfterCutoff(w string) bool {
	m := weekPattern.FindStringSubmatch(w)
	if m == nil {
		return false
	}
	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])
	if year > CutoffYear {
		return true
	}
	if year < CutoffYear {
		return false
	}
	return week >= CutoffWeek
}

// optional collapses nil and whitespace-only values to the empty string.
func optional(p *string) string {
	if p == nil {
		return ""
	}
	return utils.NormalizeString(*p)
}
