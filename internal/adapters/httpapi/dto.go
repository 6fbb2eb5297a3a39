package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/yoga-studio/booking-api/internal/app/auth"
	"github.com/yoga-studio/booking-api/internal/app/sessions"
	"github.com/yoga-studio/booking-api/internal/domain"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

type JwtResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Admin     bool   `json:"admin"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// SessionRequest is the write shape of a session. Users is accepted for compatibility
// and ignored; rosters change through the participate endpoints.
type SessionRequest struct {
	Name        string                   `json:"name"`
	Date        openapi_types.Date       `json:"date"`
	TeacherID   nullable.Nullable[int64] `json:"teacher_id"`
	Description string                   `json:"description"`
	Users       []int64                  `json:"users,omitempty"`
}

type SessionResponse struct {
	ID          int64                    `json:"id"`
	Name        string                   `json:"name"`
	Date        openapi_types.Date       `json:"date"`
	TeacherID   nullable.Nullable[int64] `json:"teacher_id"`
	Description string                   `json:"description"`
	Users       []int64                  `json:"users"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

type TeacherResponse struct {
	ID        int64     `json:"id"`
	LastName  string    `json:"lastName"`
	FirstName string    `json:"firstName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserResponse struct {
	ID        int64               `json:"id"`
	Email     openapi_types.Email `json:"email"`
	LastName  string              `json:"lastName"`
	FirstName string              `json:"firstName"`
	Admin     bool                `json:"admin"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func jwtResponseFromResult(res auth.LoginResult) JwtResponse {
	return JwtResponse{
		Token:     res.Token,
		Type:      res.Type,
		ID:        res.ID,
		Username:  res.Username,
		FirstName: res.FirstName,
		LastName:  res.LastName,
		Admin:     res.Admin,
	}
}

func sessionInputFromRequest(b SessionRequest) sessions.SessionInput {
	in := sessions.SessionInput{
		Name:        b.Name,
		Date:        b.Date.Time,
		Description: b.Description,
	}
	if b.TeacherID.IsSpecified() && !b.TeacherID.IsNull() {
		if v, err := b.TeacherID.Get(); err == nil {
			tid := domain.TeacherID(v)
			in.TeacherID = &tid
		}
	}
	return in
}

func sessionFromDomain(s domain.Session) SessionResponse {
	out := SessionResponse{
		ID:          int64(s.ID),
		Name:        s.Name,
		Date:        openapi_types.Date{Time: s.Date},
		Description: s.Description,
		Users:       make([]int64, 0, s.Attendees.Len()),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.TeacherID != nil {
		out.TeacherID = nullable.NewNullableWithValue(int64(*s.TeacherID))
	} else {
		out.TeacherID = nullable.NewNullNullable[int64]()
	}
	for _, id := range s.Attendees.IDs() {
		out.Users = append(out.Users, int64(id))
	}
	return out
}

func teacherFromDomain(t domain.Teacher) TeacherResponse {
	return TeacherResponse{
		ID:        int64(t.ID),
		LastName:  t.LastName,
		FirstName: t.FirstName,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func userFromDomain(u domain.User) UserResponse {
	return UserResponse{
		ID:        int64(u.ID),
		Email:     openapi_types.Email(u.Email),
		LastName:  u.LastName,
		FirstName: u.FirstName,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
