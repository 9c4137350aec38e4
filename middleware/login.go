package middleware

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	goPassport "github.com/MrEthical07/goPassport"
)

const maxLoginBody = 1 << 16

// CredentialChecker is the credential strategy surface the login handler
// needs. *goPassport.Engine satisfies it.
type CredentialChecker interface {
	VerifyCredentials(ctx context.Context, account, password string) goPassport.Outcome
}

// LoginRequest is the accepted login body. Form-encoded bodies use the same
// field names.
type LoginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// LoginSuccessFunc completes a successful login, typically by issuing a token.
type LoginSuccessFunc func(w http.ResponseWriter, r *http.Request, p *goPassport.Principal)

// Login returns a handler that reads an account/password pair, verifies it
// and either writes the rejection or calls onSuccess, which must not be nil.
// A body missing either field is answered with 400 before verification.
func Login(checker CredentialChecker, onSuccess LoginSuccessFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withRequestMetadata(w, r)

		req, ok := decodeLogin(w, r)
		if !ok || req.Account == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, RejectionBody{
				Success: false,
				Kind:    "bad_request",
				Message: http.StatusText(http.StatusBadRequest),
			})
			return
		}
		if checker == nil {
			WriteRejection(w, r, goPassport.Outcome{Kind: goPassport.KindUnknown, Err: goPassport.ErrEngineNotReady})
			return
		}

		out := checker.VerifyCredentials(ctx, req.Account, req.Password)
		if !out.Authenticated() {
			WriteRejection(w, r, out)
			return
		}
		onSuccess(w, r.WithContext(ctx), out.Principal)
	})
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return LoginRequest{}, false
		}
		return LoginRequest{Account: r.PostForm.Get("account"), Password: r.PostForm.Get("password")}, true
	case "multipart/form-data":
		// ParseForm leaves multipart bodies unread.
		if err := r.ParseMultipartForm(maxLoginBody); err != nil {
			return LoginRequest{}, false
		}
		return LoginRequest{Account: r.PostForm.Get("account"), Password: r.PostForm.Get("password")}, true
	default:
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return LoginRequest{}, false
		}
		return req, true
	}
}
