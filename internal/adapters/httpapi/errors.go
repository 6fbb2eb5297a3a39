package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/yoga-studio/booking-api/internal/app/auth"
	"github.com/yoga-studio/booking-api/internal/app/sessions"
	"github.com/yoga-studio/booking-api/internal/app/teachers"
	"github.com/yoga-studio/booking-api/internal/app/users"
)

// ErrorResponse is the body of every non-401 error.
type ErrorResponse struct {
	Message   string                            `json:"message"`
	Code      string                            `json:"code"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	er := ErrorResponse{Code: code, Message: message}
	if details != nil {
		er.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.RequestId = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

// writeAppError maps application errors to responses. Anything unrecognized is a logged 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authErr    *auth.Error
		sessionErr *sessions.Error
		userErr    *users.Error
		teacherErr *teachers.Error
	)
	switch {
	case errors.As(err, &authErr):
		writeError(w, r, authErr.Status, authErr.Code, authErr.Message, authErr.Details)
	case errors.As(err, &sessionErr):
		writeError(w, r, sessionErr.Status, sessionErr.Code, sessionErr.Message, sessionErr.Details)
	case errors.As(err, &userErr):
		writeError(w, r, userErr.Status, userErr.Code, userErr.Message, userErr.Details)
	case errors.As(err, &teacherErr):
		writeError(w, r, teacherErr.Status, teacherErr.Code, teacherErr.Message, nil)
	default:
		log.Printf("request %s %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
