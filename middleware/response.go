package middleware

import (
	"encoding/json"
	"net/http"

	goPassport "github.com/MrEthical07/goPassport"
)

// RejectionBody is the JSON body written for a rejected request.
type RejectionBody struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatusFor maps a rejection kind to an HTTP status. Every client-attributable
// rejection is 401; faults are 500.
func StatusFor(kind goPassport.RejectionKind) int {
	switch kind {
	case goPassport.KindNone:
		return http.StatusOK
	case goPassport.KindUnknownAccount,
		goPassport.KindInvalidPassword,
		goPassport.KindExpired,
		goPassport.KindInvalidToken:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteRejection writes the JSON rejection for out, localized for r.
func WriteRejection(w http.ResponseWriter, r *http.Request, out goPassport.Outcome) {
	kind := out.Kind
	if kind == goPassport.KindNone {
		kind = goPassport.KindUnknown
	}

	switch kind {
	case goPassport.KindExpired:
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="expired"`)
	case goPassport.KindInvalidToken:
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	writeJSON(w, StatusFor(kind), RejectionBody{
		Success: false,
		Kind:    kind.String(),
		Message: Message(ResolveLanguage(r), kind),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
