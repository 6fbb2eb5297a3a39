package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/yoga-studio/booking-api/internal/app/auth"
	"github.com/yoga-studio/booking-api/internal/app/sessions"
	"github.com/yoga-studio/booking-api/internal/app/teachers"
	"github.com/yoga-studio/booking-api/internal/app/users"
	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/idempotency"
)

// Server holds the HTTP handlers. Each handler decodes the request, calls one service
// operation and maps the result.
type Server struct {
	Auth     *auth.Service
	Sessions *sessions.Service
	Users    *users.Service
	Teachers *teachers.Service
	// Idem enables Idempotency-Key replay on session creation. Nil disables it.
	Idem idempotency.Store
}

func NewServer(authSvc *auth.Service, sessionsSvc *sessions.Service, usersSvc *users.Service, teachersSvc *teachers.Service, idem idempotency.Store) *Server {
	return &Server{
		Auth:     authSvc,
		Sessions: sessionsSvc,
		Users:    usersSvc,
		Teachers: teachersSvc,
		Idem:     idem,
	}
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := s.Auth.Login(r.Context(), auth.LoginInput{
		Email:    body.Email,
		Password: body.Password,
		ClientIP: clientIP(r),
	})
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			WriteUnauthorized(w, r, CauseBadCredentials)
			return
		}
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jwtResponseFromResult(res))
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body SignupRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	err := s.Auth.Register(r.Context(), auth.RegisterInput{
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Password:  body.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: auth.RegisteredMessage})
}

func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ss, err := s.Sessions.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]SessionResponse, 0, len(ss))
	for _, sess := range ss {
		out = append(out, sessionFromDomain(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sess, err := s.Sessions.Get(r.Context(), domain.SessionID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionFromDomain(sess))
}

func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body SessionRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	idem, done := s.beginIdempotent(w, r, "/session", body)
	if done {
		return
	}
	sess, err := s.Sessions.Create(r.Context(), sessionInputFromRequest(body))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	idem.finish(w, r, sessionFromDomain(sess))
}

func (s *Server) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body SessionRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	sess, err := s.Sessions.Update(r.Context(), domain.SessionID(id), sessionInputFromRequest(body))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionFromDomain(sess))
}

func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.Sessions.Delete(r.Context(), domain.SessionID(id)); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) Participate(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := rosterIDs(w, r)
	if !ok {
		return
	}
	if err := s.Sessions.Participate(r.Context(), sessionID, userID); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) NoLongerParticipate(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := rosterIDs(w, r)
	if !ok {
		return
	}
	if err := s.Sessions.NoLongerParticipate(r.Context(), sessionID, userID); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) ListTeachers(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Teachers.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]TeacherResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, teacherFromDomain(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetTeacher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := s.Teachers.Get(r.Context(), domain.TeacherID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teacherFromDomain(t))
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := s.Users.Get(r.Context(), domain.UserID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	caller, _ := PrincipalFromContext(r.Context())
	if err := s.Users.Delete(r.Context(), caller, domain.UserID(id)); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func rosterIDs(w http.ResponseWriter, r *http.Request) (domain.SessionID, domain.UserID, bool) {
	sid, ok := pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	uid, ok := pathID(w, r, "userId")
	if !ok {
		return 0, 0, false
	}
	return domain.SessionID(sid), domain.UserID(uid), true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", nil)
		return false
	}
	return true
}

// clientIP returns the host part of RemoteAddr, which middleware.RealIP rewrites when proxy headers are trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
