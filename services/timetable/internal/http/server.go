package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"srik/pkg/gate"
	"srik/services/timetable/internal/auth"
	"srik/services/timetable/internal/config"
	"srik/services/timetable/internal/model"
	"srik/services/timetable/internal/operations"
	"srik/services/timetable/internal/scheduling"
)

const (
	authCookie = "auth_token"
	ssoCookie  = "sso_token"
	ssoMaxAge  = 24 * 60 * 60

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Timetable is the slice of operations.Service the handlers need.
type Timetable interface {
	CreateEntry(ctx context.Context, form operations.EntryForm) (model.Entry, error)
	UpdateEntry(ctx context.Context, id string, form operations.EntryForm) (model.Entry, error)
	MoveEntry(ctx context.Context, id string, form operations.MoveForm) (model.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	ListEntries(ctx context.Context, filter model.EntryFilter) ([]model.EntryDetail, error)
	GenerateTimetable(ctx context.Context, termID int) (operations.GenerateResult, error)
	ImportEntries(ctx context.Context, termID int, forms []operations.EntryForm) (operations.ImportResult, error)
	Reference(ctx context.Context) (operations.Reference, error)
	CurrentTerm(ctx context.Context) (model.AcademicTerm, error)
	ExportTimetable(ctx context.Context, termID int, w io.Writer) error
}

type SSOVerifier interface {
	VerifySSOToken(ctx context.Context, token string) (auth.SSOUser, error)
}

type Board interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Server struct {
	cfg    config.Config
	ops    Timetable
	sso    SSOVerifier
	board  Board
	logger *zap.Logger
}

func NewServer(cfg config.Config, ops Timetable, sso SSOVerifier, board Board, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, ops: ops, sso: sso, board: board, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(gate.Middleware(gate.Config{
		ProtectedPrefixes: s.cfg.ProtectedPrefixes,
		AuthPaths:         s.cfg.AuthPaths,
		LoginPath:         s.cfg.LoginURL,
		HomePath:          "/dashboard",
	}, s.authenticated))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/auth/sso/start", s.handleSSOStart)
	r.Get(gate.SSOCallbackPath, s.handleSSOCallback)
	r.Get("/api/auth/sso/session", s.handleGetSSO)
	r.Post("/api/auth/sso/logout", s.handleClearSSO)

	r.Route("/api/timetable", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/reference", s.handleReference)
		r.Get("/terms/current", s.handleCurrentTerm)
		r.Get("/entries", s.handleListEntries)
		r.Get("/export", s.handleExport)
		if s.board != nil {
			r.Get("/ws", s.board.ServeWS)
		}

		r.With(s.requireAdmin).Post("/entries", s.handleCreateEntry)
		r.With(s.requireAdmin).Put("/entries/{entryId}", s.handleUpdateEntry)
		r.With(s.requireAdmin).Patch("/entries/{entryId}/move", s.handleMoveEntry)
		r.With(s.requireAdmin).Delete("/entries/{entryId}", s.handleDeleteEntry)
		r.With(s.requireAdmin).Post("/generate", s.handleGenerate)
		r.With(s.requireAdmin).Post("/import", s.handleImport)
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

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, code := s.resolveClaims(r)
		if claims == nil {
			writeError(w, http.StatusUnauthorized, code)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveClaims accepts an identity access token (bearer header or
// auth_token cookie) and falls back to the portal SSO cookie.
func (s *Server) resolveClaims(r *http.Request) (*auth.Claims, string) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		if cookie, err := r.Cookie(authCookie); err == nil {
			token = cookie.Value
		}
	}
	if token != "" {
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			return nil, "invalid_token"
		}
		return claims, ""
	}

	user, ok := s.ssoUser(r)
	if !ok {
		return nil, "missing_token"
	}
	return &auth.Claims{UserID: user.ID, Email: user.Email, Name: user.Name, Roles: []string{user.Role}}, ""
}

func (s *Server) authenticated(r *http.Request) bool {
	claims, _ := s.resolveClaims(r)
	return claims != nil
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		if !claims.HasRole("admin") {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// SSO consumer

func (s *Server) ssoUser(r *http.Request) (auth.SSOUser, bool) {
	if s.sso == nil {
		return auth.SSOUser{}, false
	}
	cookie, err := r.Cookie(ssoCookie)
	if err != nil || cookie.Value == "" {
		return auth.SSOUser{}, false
	}
	user, err := s.sso.VerifySSOToken(r.Context(), cookie.Value)
	if err != nil {
		return auth.SSOUser{}, false
	}
	return user, true
}

func (s *Server) handleSSOStart(w http.ResponseWriter, r *http.Request) {
	callback := url.URL{Scheme: "http", Host: r.Host, Path: s.cfg.LoginURL}
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		callback.Scheme = "https"
	}
	target := strings.TrimRight(s.cfg.SSOServerURL, "/") + "/api/auth/sso/login?" +
		url.Values{"callback": {callback.String()}}.Encode()
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("sso_token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing_sso_token")
		return
	}
	if s.sso == nil {
		writeError(w, http.StatusServiceUnavailable, "sso_unavailable")
		return
	}
	user, err := s.sso.VerifySSOToken(r.Context(), token)
	if err != nil {
		s.logger.Warn("sso token rejected", zap.Error(err))
		http.Redirect(w, r, s.cfg.LoginURL+"?error=sso", http.StatusTemporaryRedirect)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ssoCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   ssoMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("sso session started", zap.String("user_id", user.ID))
	http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
}

func (s *Server) handleGetSSO(w http.ResponseWriter, r *http.Request) {
	user, ok := s.ssoUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleClearSSO(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     ssoCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Timetable

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	ref, err := s.ops.Reference(r.Context())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleCurrentTerm(w http.ResponseWriter, r *http.Request) {
	term, err := s.ops.CurrentTerm(r.Context())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, term)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	termID, ok := queryInt(w, r, "term_id")
	if !ok {
		return
	}
	classroomID, ok := queryInt(w, r, "classroom_id")
	if !ok {
		return
	}
	entries, err := s.ops.ListEntries(r.Context(), model.EntryFilter{
		TermID:      termID,
		ClassroomID: classroomID,
		TeacherID:   strings.TrimSpace(r.URL.Query().Get("teacher_id")),
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	if entries == nil {
		entries = []model.EntryDetail{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var form operations.EntryForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	entry, err := s.ops.CreateEntry(r.Context(), form)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var form operations.EntryForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	entry, err := s.ops.UpdateEntry(r.Context(), id, form)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleMoveEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var form operations.MoveForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	entry, err := s.ops.MoveEntry(r.Context(), id, form)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := s.ops.DeleteEntry(r.Context(), id); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// entryID reads the {entryId} path parameter. Entry IDs are UUIDs, so
// anything else cannot name a row.
func entryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "entryId")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, operations.ErrEntryNotFound)
		return "", false
	}
	return id, true
}

type generateRequest struct {
	TermID int `json:"term_id"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
	}
	result, err := s.ops.GenerateTimetable(r.Context(), req.TermID)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type importRequest struct {
	TermID  int                    `json:"term_id"`
	Entries []operations.EntryForm `json:"entries"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "missing_entries")
		return
	}
	result, err := s.ops.ImportEntries(r.Context(), req.TermID, req.Entries)
	if err != nil {
		writeOpError(w, err)
		return
	}
	if result.Rejected == nil {
		result.Rejected = []scheduling.Rejection{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	termID, ok := queryInt(w, r, "term_id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.ops.ExportTimetable(r.Context(), termID, &buf); err != nil {
		writeOpError(w, err)
		return
	}
	name := "jadual.xlsx"
	if termID != 0 {
		name = fmt.Sprintf("jadual-%d.xlsx", termID)
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Helpers

func writeOpError(w http.ResponseWriter, err error) {
	var conflict *scheduling.Conflict
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  string(conflict.Kind),
			"detail": conflict.Error(),
		})
		return
	}
	var opErr *operations.Error
	if !errors.As(err, &opErr) {
		writeError(w, http.StatusInternalServerError, operations.ErrServerError)
		return
	}
	status := http.StatusInternalServerError
	switch opErr.Code {
	case operations.ErrInvalidEntry, operations.ErrInvalidReference:
		status = http.StatusBadRequest
	case operations.ErrEntryNotFound, operations.ErrTermNotFound, operations.ErrTimeSlotNotFound, operations.ErrNoCurrentTerm:
		status = http.StatusNotFound
	}
	payload := map[string]string{"error": opErr.Code}
	if opErr.Detail != "" && status != http.StatusInternalServerError {
		payload["detail"] = opErr.Detail
	}
	writeJSON(w, status, payload)
}

func queryInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		writeError(w, http.StatusBadRequest, "invalid_"+key)
		return 0, false
	}
	return value, true
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
