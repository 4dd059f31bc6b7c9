package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"srik/services/identity/internal/auth"
	"srik/services/identity/internal/metrics"
	"srik/services/identity/internal/model"
)

type ssoVerifyRequest struct {
	Token string `json:"token"`
}

func (s *Server) ssoConfig() auth.SSOConfig {
	return auth.SSOConfig{
		Secret:   s.cfg.SSOSecret,
		Issuer:   s.cfg.SSOIssuer,
		Audience: s.cfg.SSOAudience,
		TTL:      s.cfg.SSOTokenTTL,
	}
}

// handleSSOLogin hands the signed-in user back to a portal with a one-time
// token appended to the callback URL.
func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	callback := r.URL.Query().Get("callback")

	user, _, err := s.session(r)
	if err != nil {
		if !errors.Is(err, errNoSession) {
			s.logger.Error("session lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		target := s.cfg.LoginURL
		if callback != "" {
			target += "?callbackUrl=" + url.QueryEscape(callback)
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	if _, err := s.store.GetUserByID(r.Context(), user.ID); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if callback == "" {
		writeError(w, http.StatusBadRequest, "No callback URL provided")
		return
	}
	target, err := url.Parse(callback)
	if err != nil || !s.allowedCallback(target) {
		s.logger.Warn("sso callback rejected", zap.String("user_id", user.ID), zap.String("callback", callback))
		writeError(w, http.StatusBadRequest, "Invalid callback URL")
		return
	}

	token, err := auth.NewSSOToken(s.ssoConfig(), auth.SSOUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  model.RoleTeacher,
	})
	if err != nil {
		metrics.SSOTokens.WithLabelValues("issue", "error").Inc()
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	metrics.SSOTokens.WithLabelValues("issue", "ok").Inc()

	query := target.Query()
	query.Set("sso_token", token)
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// allowedCallback accepts same-origin paths and absolute http(s) URLs whose
// host is listed in SSOCallbackHosts.
func (s *Server) allowedCallback(target *url.URL) bool {
	if target.Scheme == "" && target.Host == "" {
		return strings.HasPrefix(target.Path, "/")
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return false
	}
	host := strings.ToLower(target.Hostname())
	for _, allowed := range s.cfg.SSOCallbackHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleSSOVerify(w http.ResponseWriter, r *http.Request) {
	var req ssoVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "No token provided")
		return
	}
	claims, err := auth.ParseSSOToken(s.ssoConfig(), req.Token)
	if err != nil {
		metrics.SSOTokens.WithLabelValues("verify", "invalid").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	metrics.SSOTokens.WithLabelValues("verify", "ok").Inc()
	writeJSON(w, http.StatusOK, claims)
}
