package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/credential"
)

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(username string, now time.Time) (string, time.Time, error) {
	expires := now.Add(s.cfg.JWTTTL)
	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    "feedesk",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	return signed, expires, err
}

func (s *Server) parseToken(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin verifies a credential in either stored format and issues a
// bearer token. A successful legacy-format login re-hashes the password to
// the current format in place.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.deps.Users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("auth.lookup.failed", "username", req.Username, "error", err)
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	stored := credential.Parse(user.PasswordHash)
	if !s.deps.Hasher.Verify(req.Password, stored) {
		s.logger.Warn("auth.login.rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if stored.Format == credential.FormatLegacy {
		s.upgradeCredential(r.Context(), req.Username, req.Password)
	}

	token, expires, err := s.issueToken(req.Username, time.Now().UTC())
	if err != nil {
		s.logger.Error("auth.token.failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.logger.Info("auth.login.ok", "username", req.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.Format(time.RFC3339),
	})
}

// upgradeCredential is best effort: a failure leaves the legacy hash in
// place and the login still succeeds.
func (s *Server) upgradeCredential(ctx context.Context, username, password string) {
	rehashed, err := s.deps.Hasher.Hash(password)
	if err != nil {
		s.logger.Warn("auth.rehash.failed", "username", username, "error", err)
		return
	}
	if err := s.deps.Users.UpdateHash(ctx, username, rehashed.Value); err != nil {
		s.logger.Warn("auth.rehash.failed", "username", username, "error", err)
		return
	}
	s.logger.Info("auth.rehash.ok", "username", username)
}

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		c, err := s.parseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
