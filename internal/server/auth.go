package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/me/teamplan/pkg/model"
)

const ctxKeySession ctxKey = "session"

// Session holds the authenticated caller's identity for a request.
type Session struct {
	UserID string
	OrgID  string
	Role   model.UserRole
}

// SessionFromContext extracts the Session from request context.
func SessionFromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(ctxKeySession).(*Session); ok {
		return sess
	}
	return nil
}

// handleLogin verifies credentials and issues an HS256 session token
// carrying the user's organization context.
// POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("missing credentials",
				model.FieldError{Field: "email", Message: "email and password are required"}))
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrUnauthorized,
			Message: "incorrect email or password",
		})
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Error("token issue failed", "user_id", user.ID, "error", err)
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError("token issue failed"))
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID, "org_id", user.OrgID)
	respondOK(w, reqID, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (s *Server) issueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    user.ID,
		"org_id": user.OrgID,
		"role":   string(user.Role),
		"iat":    now.Unix(),
		"exp":    now.Add(s.config.Auth.TokenTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(s.config.Auth.Secret))
}

// verifyToken parses and validates a session token, returning the session
// it encodes.
func (s *Server) verifyToken(raw string) (*Session, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.Auth.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	orgID, _ := claims["org_id"].(string)
	role, _ := claims["role"].(string)
	if orgID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &Session{UserID: sub, OrgID: orgID, Role: model.UserRole(role)}, nil
}

// authMiddleware resolves the caller's organization context. With a signing
// secret configured it requires a valid bearer token; without one (dev mode)
// it takes the organization from the X-Org-ID header.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())

		if s.config.Auth.Secret == "" {
			orgID := r.Header.Get("X-Org-ID")
			if orgID == "" {
				respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
					Code:    model.ErrUnauthorized,
					Message: "X-Org-ID header required",
				})
				return
			}
			sess := &Session{OrgID: orgID}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeySession, sess)))
			return
		}

		auth := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token == "" {
			respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
				Code:    model.ErrUnauthorized,
				Message: "authentication required",
			})
			return
		}
		sess, err := s.verifyToken(token)
		if err != nil {
			respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
				Code:    model.ErrUnauthorized,
				Message: "invalid or expired token",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeySession, sess)))
	})
}

// orgID returns the caller's organization from the request context.
func orgID(r *http.Request) string {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.OrgID
}
