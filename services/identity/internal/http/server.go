package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"srik/pkg/gate"
	"srik/services/identity/internal/auth"
	"srik/services/identity/internal/cache"
	"srik/services/identity/internal/config"
	"srik/services/identity/internal/model"
)

const authCookie = "auth_token"

type Store interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	CreateUser(ctx context.Context, email, passwordHash string, name *string, role string) (model.User, error)

	CreateRefreshSession(ctx context.Context, session model.RefreshSession) error
	GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error)
	RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error
	RevokeRefreshSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) error

	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, fullName, avatarURL *string) (model.Profile, error)

	GetTeacherDetails(ctx context.Context, userID string) (model.TeacherDetails, error)
	SaveTeacherDetails(ctx context.Context, d model.TeacherDetails, fullName *string, now time.Time) (model.TeacherDetails, bool, error)

	ListLeaveRequests(ctx context.Context, userID string) ([]model.LeaveRequest, error)
	ListLeaveRequestsByStatus(ctx context.Context, status string) ([]model.LeaveRequest, error)
	CreateLeaveRequest(ctx context.Context, l model.LeaveRequest) (model.LeaveRequest, error)
	ReviewLeaveRequest(ctx context.Context, id, status, reviewerID string) (model.LeaveRequest, error)
}

// SessionCache is satisfied by *cache.Cache.
type SessionCache interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	Revoked(ctx context.Context, jti string) (bool, error)
	GetSession(ctx context.Context, userID string) (cache.SessionUser, bool, error)
	PutSession(ctx context.Context, user cache.SessionUser) error
	ForgetSession(ctx context.Context, userID string) error
}

type Server struct {
	cfg      config.Config
	store    Store
	sessions SessionCache
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(cfg config.Config, store Store, sessions SessionCache, logger *zap.Logger) *Server {
	if sessions == nil {
		sessions = cache.New(nil, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(gate.Middleware(s.gateConfig(), s.authenticated))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignUp)
		r.Post("/signin", s.handleSignIn)
		r.Post("/signout", s.handleSignOut)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/session", s.handleGetSession)

		r.Get("/sso/login", s.handleSSOLogin)
		r.Post("/sso/verify", s.handleSSOVerify)
	})

	r.With(s.requireAuth(model.RoleAdmin)).Get("/api/admin/me", s.handleAdminMe)

	r.Route("/api/profiles/{userId}", func(r chi.Router) {
		r.Use(s.requireAuth(), s.requireSelfOrAdmin)
		r.Get("/", s.handleGetProfile)
		r.Patch("/", s.handleUpdateProfile)
	})

	r.Route("/api/teachers/{userId}/details", func(r chi.Router) {
		r.Use(s.requireAuth(), s.requireSelfOrAdmin)
		r.Get("/", s.handleGetTeacherDetails)
		r.Put("/", s.handleSaveTeacherDetails)
	})

	r.Route("/api/leave", func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Get("/", s.handleListLeave)
		r.Post("/", s.handleCreateLeave)
		r.With(s.requireRoles(model.RoleAdmin)).Post("/{leaveId}/review", s.handleReviewLeave)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Auth

type sessionKey struct{}

func (s *Server) gateConfig() gate.Config {
	cfg := gate.DefaultConfig()
	if s.cfg.LoginURL != "" && strings.HasPrefix(s.cfg.LoginURL, "/") {
		cfg.LoginPath = s.cfg.LoginURL
		cfg.AuthPaths = []string{s.cfg.LoginURL}
	}
	return cfg
}

func (s *Server) authenticated(r *http.Request) bool {
	_, _, err := s.session(r)
	return err == nil
}

// requireAuth loads the session. Without one it answers 401 unauthorized;
// when roles are given and the user holds none of them, 403 forbidden.
func (s *Server) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _, err := s.session(r)
			if err != nil {
				if !errors.Is(err, errNoSession) {
					s.logger.Error("session lookup failed", zap.Error(err))
					writeError(w, http.StatusInternalServerError, "server_error")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if len(roles) > 0 && !hasAnyRole(user.Roles, roles) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) requireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := sessionFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !hasAnyRole(user.Roles, roles) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requireSelfOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := sessionFromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID := chi.URLParam(r, "userId")
		if user.ID != userID && !hasAnyRole(user.Roles, []string{model.RoleAdmin}) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		if _, err := uuid.Parse(userID); err != nil {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) *cache.SessionUser {
	user, _ := ctx.Value(sessionKey{}).(*cache.SessionUser)
	return user
}

func hasAnyRole(held, wanted []string) bool {
	for _, w := range wanted {
		for _, h := range held {
			if h == w {
				return true
			}
		}
	}
	return false
}

func (s *Server) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "admin access granted",
		"user":    sessionFromContext(r.Context()),
	})
}

// Helpers

func requestToken(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(authCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func auditClaims(c *auth.Claims) []zap.Field {
	if c == nil {
		return nil
	}
	return []zap.Field{zap.String("user_id", c.UserID), zap.String("jti", c.ID)}
}
