package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"srik/services/identity/internal/model"
)

const dateLayout = "2006-01-02"

type updateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

type teacherDetailsRequest struct {
	FullName       *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	ICNumber       string  `json:"ic_number" validate:"required,max=20"`
	DateOfBirth    *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	HomeAddress    string  `json:"home_address" validate:"required"`
	MaritalStatus  string  `json:"marital_status" validate:"required"`
	SpouseName     *string `json:"spouse_name"`
	SpouseICNumber *string `json:"spouse_ic_number" validate:"omitempty,max=20"`
	SpousePhone    *string `json:"spouse_phone" validate:"omitempty,max=20"`
}

type leaveRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

type reviewLeaveRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// Profiles

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetProfile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	userID := chi.URLParam(r, "userId")
	profile, err := s.store.UpdateProfile(r.Context(), userID, req.FullName, req.AvatarURL)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		s.logger.Error("update profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.forgetSession(r, userID)
	writeJSON(w, http.StatusOK, profile)
}

// Teacher details

func (s *Server) handleGetTeacherDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.store.GetTeacherDetails(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "teacher_details_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleSaveTeacherDetails(w http.ResponseWriter, r *http.Request) {
	var req teacherDetailsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	userID := chi.URLParam(r, "userId")
	details, created, err := s.store.SaveTeacherDetails(r.Context(), model.TeacherDetails{
		ID:             userID,
		ICNumber:       req.ICNumber,
		DateOfBirth:    req.DateOfBirth,
		HomeAddress:    req.HomeAddress,
		MaritalStatus:  req.MaritalStatus,
		SpouseName:     req.SpouseName,
		SpouseICNumber: req.SpouseICNumber,
		SpousePhone:    req.SpousePhone,
	}, req.FullName, s.now())
	if err != nil {
		s.logger.Error("save teacher details failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if req.FullName != nil {
		s.forgetSession(r, userID)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		s.logger.Info("teacher registered", zap.String("user_id", userID), zap.String("teacher_id", details.TeacherID))
	}
	writeJSON(w, status, details)
}

// Leave

func (s *Server) handleListLeave(w http.ResponseWriter, r *http.Request) {
	user := sessionFromContext(r.Context())
	admin := hasAnyRole(user.Roles, []string{model.RoleAdmin})

	var (
		list []model.LeaveRequest
		err  error
	)
	query := r.URL.Query()
	switch {
	case admin && query.Get("status") != "":
		list, err = s.store.ListLeaveRequestsByStatus(r.Context(), query.Get("status"))
	case admin && query.Get("user_id") != "":
		list, err = s.store.ListLeaveRequests(r.Context(), query.Get("user_id"))
	default:
		list, err = s.store.ListLeaveRequests(r.Context(), user.ID)
	}
	if err != nil {
		s.logger.Error("list leave requests failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if list == nil {
		list = []model.LeaveRequest{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateLeave(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "invalid_date_range")
		return
	}

	user := sessionFromContext(r.Context())
	created, err := s.store.CreateLeaveRequest(r.Context(), model.LeaveRequest{
		UserID:    user.ID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	})
	if err != nil {
		s.logger.Error("create leave request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleReviewLeave(w http.ResponseWriter, r *http.Request) {
	var req reviewLeaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	leaveID := chi.URLParam(r, "leaveId")
	if _, err := uuid.Parse(leaveID); err != nil {
		writeError(w, http.StatusNotFound, "leave_request_not_found")
		return
	}
	reviewer := sessionFromContext(r.Context())
	reviewed, err := s.store.ReviewLeaveRequest(r.Context(), leaveID, req.Status, reviewer.ID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "leave_request_not_found")
			return
		}
		s.logger.Error("review leave request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, reviewed)
}

func (s *Server) forgetSession(r *http.Request, userID string) {
	if err := s.sessions.ForgetSession(r.Context(), userID); err != nil {
		s.logger.Warn("forget session failed", zap.Error(err))
	}
}
