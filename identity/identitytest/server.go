// Package identitytest provides an in-process implementation of the identity
// service contract for tests and local development. It issues real HS256
// JWTs and rotates refresh tokens, but clients must keep treating both as
// opaque strings.
package identitytest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/worknest/worknest-go/users"
)

// DefaultTokenTTL is the advertised access-token lifetime.
const DefaultTokenTTL = time.Hour

type account struct {
	user         users.User
	passwordHash string
}

// Server is a fake identity service. Zero value is not usable; call
// NewServer.
type Server struct {
	secret   []byte
	tokenTTL time.Duration
	router   chi.Router

	lock          sync.Mutex
	accounts      map[string]*account // keyed by email
	refreshTokens map[string]string   // refresh token -> email
	resetTokens   map[string]string   // reset token -> email
	revoked       map[string]bool     // access tokens forced to 401

	// Failure injection for exercising client recovery paths.
	FailRefresh   bool // refresh always answers 401
	FailAuthorize bool // authorize always answers 401

	// Call counters for asserting retry behavior.
	LoginCalls     int
	RefreshCalls   int
	AuthorizeCalls int
}

// NewServer creates a fake identity service with a random signing secret.
func NewServer() *Server {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	s := &Server{
		secret:        secret,
		tokenTTL:      DefaultTokenTTL,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		resetTokens:   make(map[string]string),
		revoked:       make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Get("/auth/authorize", s.handleAuthorize)
	r.Post("/auth/reset-password-request", s.handleResetRequest)
	r.Post("/auth/reset-password/{token}", s.handleReset)
	s.router = r
	return s
}

// Handler returns the HTTP handler implementing the identity contract.
func (s *Server) Handler() http.Handler {
	return s.router
}

// AddUser registers a fixture account and returns its user record.
func (s *Server) AddUser(email, password string, role users.RoleType) users.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := users.User{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      role,
		Verified:  true,
		CreatedAt: time.Now().UTC(),
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.accounts[email] = &account{user: user, passwordHash: string(hash)}
	return user
}

// Revoke marks an access token as rejected, simulating expiry.
func (s *Server) Revoke(accessToken string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.revoked[accessToken] = true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.LoginCalls++

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	acct, ok := s.accounts[req.Email]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	access, refresh, err := s.issueTokens(acct.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"expiresIn":    int(s.tokenTTL.Seconds()),
		"user":         acct.user,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
		FirstName       string `json:"firstName"`
		LastName        string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match.")
		return
	}
	if _, exists := s.accounts[req.Email]; exists {
		writeError(w, http.StatusConflict, "An account with this email already exists.")
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	s.accounts[req.Email] = &account{
		user: users.User{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Role:      users.RoleUser,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			CreatedAt: time.Now().UTC(),
		},
		passwordHash: string(hash),
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Registration successful. Please verify your email.",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.RefreshCalls++

	if s.FailRefresh {
		writeError(w, http.StatusUnauthorized, "refresh token rejected")
		return
	}

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	email, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "refresh token rejected")
		return
	}
	delete(s.refreshTokens, req.RefreshToken)

	acct := s.accounts[email]
	access, refresh, err := s.issueTokens(acct.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"expiresIn":    int(s.tokenTTL.Seconds()),
	})
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.AuthorizeCalls++

	if s.FailAuthorize {
		writeError(w, http.StatusUnauthorized, "token rejected")
		return
	}

	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || s.revoked[raw] {
		writeError(w, http.StatusUnauthorized, "token rejected")
		return
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		writeError(w, http.StatusUnauthorized, "token rejected")
		return
	}

	email, _ := claims["email"].(string)
	acct, ok := s.accounts[email]
	if !ok {
		writeError(w, http.StatusUnauthorized, "token rejected")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": acct.user})
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	// Same response whether or not the account exists.
	if _, ok := s.accounts[req.Email]; ok {
		s.resetTokens[randomToken()] = req.Email
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a reset link has been sent.",
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	token := chi.URLParam(r, "token")
	email, ok := s.resetTokens[token]
	if !ok {
		writeError(w, http.StatusBadRequest, "Reset link is invalid or has expired.")
		return
	}

	var req struct {
		NewPassword        string `json:"newPassword"`
		ConfirmNewPassword string `json:"confirmNewPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.NewPassword != req.ConfirmNewPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match.")
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	s.accounts[email].passwordHash = string(hash)
	delete(s.resetTokens, token)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ResetTokenFor mints a password-reset token for email, for driving the
// reset flow in tests without a mailbox.
func (s *Server) ResetTokenFor(email string) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	token := randomToken()
	s.resetTokens[token] = email
	return token
}

// issueTokens mints an access JWT and a rotating refresh token. Caller holds
// the lock.
func (s *Server) issueTokens(user users.User) (string, string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
		"jti":   uuid.New().String(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	refresh := randomToken()
	s.refreshTokens[refresh] = user.Email
	return access, refresh, nil
}

func randomToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
