package teachers

import (
	"context"
	"errors"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

type Service struct {
	repo teacherrepo.Repository
}

func NewService(repo teacherrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Teacher, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id domain.TeacherID) (domain.Teacher, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, teacherrepo.ErrNotFound) {
			return domain.Teacher{}, &Error{Status: 404, Code: "TEACHER_NOT_FOUND", Message: "teacher not found"}
		}
		return domain.Teacher{}, err
	}
	return t, nil
}
