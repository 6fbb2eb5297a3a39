package teacherrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
)

// Repo is a Postgres implementation of teacherrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, t domain.Teacher) (domain.Teacher, error) {
	if r.pool == nil {
		return domain.Teacher{}, errors.New("nil postgres pool")
	}
	return scanTeacher(r.pool.QueryRow(ctx, `
		INSERT INTO teachers (first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, first_name, last_name, created_at, updated_at
	`, t.FirstName, t.LastName, t.CreatedAt.UTC(), t.UpdatedAt.UTC()))
}

func (r *Repo) FindByID(ctx context.Context, id domain.TeacherID) (domain.Teacher, error) {
	if r.pool == nil {
		return domain.Teacher{}, errors.New("nil postgres pool")
	}
	t, err := scanTeacher(r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, created_at, updated_at
		FROM teachers
		WHERE id = $1
	`, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Teacher{}, teacherrepo.ErrNotFound
		}
		return domain.Teacher{}, err
	}
	return t, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.Teacher, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, created_at, updated_at
		FROM teachers
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Teacher, 0)
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTeacher(row pgx.Row) (domain.Teacher, error) {
	var (
		id        int64
		t         domain.Teacher
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &t.FirstName, &t.LastName, &createdAt, &updatedAt); err != nil {
		return domain.Teacher{}, err
	}
	t.ID = domain.TeacherID(id)
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}
