package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/MrEthical07/goPassport/directory"
	promexport "github.com/MrEthical07/goPassport/metrics/export/prometheus"
	"github.com/MrEthical07/goPassport/middleware"
)

const maxRegisterBody = 1 << 16

type authEngine interface {
	middleware.Authenticator
	middleware.CredentialChecker
	promexport.MetricsSource
}

type tokenIssuer interface {
	Issue(subject string) (string, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	NeedsUpgrade(hash string) (bool, error)
}

type server struct {
	engine authEngine
	store  directory.Store
	issuer tokenIssuer
	hasher passwordHasher
	logger *slog.Logger
}

func newServer(engine authEngine, store directory.Store, issuer tokenIssuer, hasher passwordHasher, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.Default()
	}
	return &server{engine: engine, store: store, issuer: issuer, hasher: hasher, logger: logger}
}

func (s *server) routes() http.Handler {
	guard := middleware.RequireToken(s.engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/register", s.handleRegister)
	mux.Handle("POST /user/login", middleware.Login(rehashingChecker{s}, s.handleLoginSuccess))
	mux.Handle("POST /user/extend", guard(http.HandlerFunc(s.handleExtend)))
	mux.Handle("POST /user/logout", guard(http.HandlerFunc(s.handleLogout)))
	mux.Handle("POST /user/logout/all", guard(http.HandlerFunc(s.handleLogoutAll)))
	mux.Handle("GET /user/profile", guard(http.HandlerFunc(s.handleProfile)))
	mux.Handle("GET /metrics", promexport.Handler(s.engine))
	return mux
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type profileResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Account string `json:"account"`
	Devices int    `json:"devices"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRegisterBody)
	var req middleware.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Kind: "bad_request", Message: "malformed body"})
		return
	}
	req.Account = strings.TrimSpace(req.Account)
	if req.Account == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Kind: "bad_request", Message: "account and password are required"})
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Kind: "bad_request", Message: err.Error()})
		return
	}
	p, err := s.store.Create(r.Context(), req.Account, hash)
	switch {
	case errors.Is(err, goPassport.ErrAccountExists):
		writeJSON(w, http.StatusConflict, statusResponse{Kind: "account_exists", Message: err.Error()})
		return
	case err != nil:
		s.fault(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, profileResponse{Success: true, ID: p.ID, Account: p.Account})
}

// rehashingChecker verifies credentials through the engine and, on success,
// rewrites hashes the configured hasher reports as outdated.
type rehashingChecker struct{ s *server }

func (c rehashingChecker) VerifyCredentials(ctx context.Context, account, password string) goPassport.Outcome {
	out := c.s.engine.VerifyCredentials(ctx, account, password)
	if out.Authenticated() {
		c.s.upgradeHash(ctx, out.Principal, password)
	}
	return out
}

// upgradeHash never fails the login; the old hash stays valid until the
// next attempt.
func (s *server) upgradeHash(ctx context.Context, p *goPassport.Principal, password string) {
	stale, err := s.hasher.NeedsUpgrade(p.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "inspect password hash", "principal", p.ID, "error", err)
		return
	}
	if !stale {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "rehash password", "principal", p.ID, "error", err)
		return
	}
	if err := s.store.UpdatePasswordHash(ctx, p.ID, hash); err != nil {
		s.logger.WarnContext(ctx, "store upgraded password hash", "principal", p.ID, "error", err)
		return
	}
	p.PasswordHash = hash
	s.logger.InfoContext(ctx, "password hash upgraded", "principal", p.ID)
}

func (s *server) handleLoginSuccess(w http.ResponseWriter, r *http.Request, p *goPassport.Principal) {
	token, err := s.issuer.Issue(p.ID)
	if err != nil {
		s.fault(w, r, "issue token", err)
		return
	}
	if err := s.store.AddToken(r.Context(), p.ID, token); err != nil {
		s.fault(w, r, "store token", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Success: true, Token: token})
}

// handleExtend is grace-exempt: an expired but still-held token can be
// swapped for a fresh one.
func (s *server) handleExtend(w http.ResponseWriter, r *http.Request) {
	p, old, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		s.fault(w, r, "extend", goPassport.ErrEngineNotReady)
		return
	}
	token, err := s.issuer.Issue(p.ID)
	if err != nil {
		s.fault(w, r, "issue token", err)
		return
	}
	err = s.store.ReplaceToken(r.Context(), p.ID, old, token)
	switch {
	case errors.Is(err, goPassport.ErrTokenNotActive):
		// Revoked concurrently by another request.
		middleware.WriteRejection(w, r, goPassport.Outcome{Kind: goPassport.KindInvalidToken, Err: err})
		return
	case err != nil:
		s.fault(w, r, "replace token", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Success: true, Token: token})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, token, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		s.fault(w, r, "logout", goPassport.ErrEngineNotReady)
		return
	}
	if err := s.store.RemoveToken(r.Context(), p.ID, token); err != nil {
		s.fault(w, r, "remove token", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (s *server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, _, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		s.fault(w, r, "logout all", goPassport.ErrEngineNotReady)
		return
	}
	if err := s.store.RemoveAllTokens(r.Context(), p.ID); err != nil {
		s.fault(w, r, "remove tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		s.fault(w, r, "profile", goPassport.ErrEngineNotReady)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Success: true, ID: p.ID, Account: p.Account, Devices: len(p.Tokens)})
}

func (s *server) fault(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
		slog.String("op", op),
		slog.String("request_id", goPassport.RequestIDFromContext(r.Context())),
		slog.Any("error", err),
	)
	middleware.WriteRejection(w, r, goPassport.Outcome{Kind: goPassport.KindUnknown, Err: err})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

