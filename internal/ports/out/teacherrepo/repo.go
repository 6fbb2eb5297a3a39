package teacherrepo

import (
	"context"

	"github.com/yoga-studio/booking-api/internal/domain"
)

// Repository provides access to persisted teachers.
// List returns teachers ordered by ID ascending.
type Repository interface {
	Create(ctx context.Context, t domain.Teacher) (domain.Teacher, error)
	FindByID(ctx context.Context, id domain.TeacherID) (domain.Teacher, error)
	List(ctx context.Context) ([]domain.Teacher, error)
}
