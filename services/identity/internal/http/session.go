package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"srik/services/identity/internal/auth"
	"srik/services/identity/internal/cache"
	"srik/services/identity/internal/crypto"
	"srik/services/identity/internal/metrics"
	"srik/services/identity/internal/model"
	"srik/services/identity/internal/repository"
)

var errNoSession = errors.New("no session")

type signUpRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     *string `json:"name" validate:"omitempty,max=200"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	ExpiresAt    time.Time         `json:"expires_at"`
	User         cache.SessionUser `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if !strings.HasSuffix(req.Email, "@"+s.cfg.EmailDomain) {
		writeError(w, http.StatusBadRequest, "invalid_email_domain")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	user, err := s.store.CreateUser(r.Context(), req.Email, hash, req.Name, model.RoleTeacher)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_taken")
			return
		}
		s.logger.Error("create user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))

	resp, ok := s.issueSession(w, r, user)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if isNotFound(err) {
			metrics.Logins.WithLabelValues("invalid_credentials").Inc()
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.logger.Error("load user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		s.logger.Info("sign-in rejected", zap.String("user_id", user.ID), zap.String("ip", clientIP(r)))
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	resp, ok := s.issueSession(w, r, user)
	if !ok {
		return
	}
	metrics.Logins.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := requestToken(r); token != "" {
		if claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token); err == nil {
			now := s.now()
			if err := s.store.RevokeRefreshSessionsByUser(r.Context(), claims.UserID, now); err != nil {
				s.logger.Warn("revoke refresh sessions failed", zap.Error(err))
			}
			if claims.ExpiresAt != nil {
				if err := s.sessions.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
					s.logger.Warn("blacklist access token failed", zap.Error(err))
				}
			}
			if err := s.sessions.ForgetSession(r.Context(), claims.UserID); err != nil {
				s.logger.Warn("forget session failed", zap.Error(err))
			}
			s.logger.Info("signed out", auditClaims(claims)...)
		}
	}
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	user, _, err := s.session(r)
	if err != nil {
		if errors.Is(err, errNoSession) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.logger.Error("session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	session, err := s.store.GetRefreshSession(r.Context(), crypto.HashToken(req.RefreshToken))
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	now := s.now()
	if session.RevokedAt != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	if now.After(session.ExpiresAt) {
		writeError(w, http.StatusUnauthorized, "refresh_token_expired")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := s.store.RevokeRefreshSession(r.Context(), session.ID, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp, ok := s.issueSession(w, r, user)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// issueSession signs an access token, stores a fresh refresh session and sets
// the auth cookie. On failure it has already written the error response.
func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, user model.User) (sessionResponse, bool) {
	sessionUser, err := s.sessionUser(r, user)
	if err != nil {
		s.logger.Error("load profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return sessionResponse{}, false
	}

	now := s.now()
	accessToken, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   sessionUser.Name,
		Roles:  user.Roles,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return sessionResponse{}, false
	}

	refreshToken, err := crypto.NewRefreshToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return sessionResponse{}, false
	}
	userAgent := r.UserAgent()
	ip := clientIP(r)
	if err := s.store.CreateRefreshSession(r.Context(), model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.HashToken(refreshToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		UserAgent: &userAgent,
		IPAddress: &ip,
	}); err != nil {
		s.logger.Error("store refresh session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return sessionResponse{}, false
	}

	if err := s.sessions.PutSession(r.Context(), sessionUser); err != nil {
		s.logger.Warn("cache session failed", zap.Error(err))
	}
	s.setAuthCookie(w, accessToken)
	return sessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.cfg.AccessTokenTTL),
		User:         sessionUser,
	}, true
}

// session resolves the caller from the bearer token or auth cookie. Revoked
// tokens and deleted users yield errNoSession.
func (s *Server) session(r *http.Request) (cache.SessionUser, *auth.Claims, error) {
	token := requestToken(r)
	if token == "" {
		return cache.SessionUser{}, nil, errNoSession
	}
	claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
	if err != nil {
		return cache.SessionUser{}, nil, errNoSession
	}
	revoked, err := s.sessions.Revoked(r.Context(), claims.ID)
	if err != nil {
		s.logger.Warn("blacklist lookup failed", zap.Error(err))
	}
	if revoked {
		return cache.SessionUser{}, nil, errNoSession
	}

	if cached, ok, err := s.sessions.GetSession(r.Context(), claims.UserID); err == nil && ok {
		return cached, claims, nil
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return cache.SessionUser{}, nil, errNoSession
		}
		return cache.SessionUser{}, nil, err
	}
	sessionUser, err := s.sessionUser(r, user)
	if err != nil {
		return cache.SessionUser{}, nil, err
	}
	if err := s.sessions.PutSession(r.Context(), sessionUser); err != nil {
		s.logger.Warn("cache session failed", zap.Error(err))
	}
	return sessionUser, claims, nil
}

func (s *Server) sessionUser(r *http.Request, user model.User) (cache.SessionUser, error) {
	var profile *model.Profile
	p, err := s.store.GetProfile(r.Context(), user.ID)
	switch {
	case err == nil:
		profile = &p
	case !isNotFound(err):
		return cache.SessionUser{}, err
	}
	image := user.Image
	if profile != nil && profile.AvatarURL != nil {
		image = profile.AvatarURL
	}
	return cache.SessionUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.DisplayName(profile),
		Image: image,
		Roles: user.Roles,
	}, nil
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.AccessTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
}
