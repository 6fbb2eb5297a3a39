package userrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/yoga-studio/booking-api/internal/adapters/postgres"
	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const userColumns = `id, email, first_name, last_name, password_hash, admin, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, u userrepo.User) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	u.Email = string(domain.NormalizeUsername(u.Email))

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, password_hash, admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.Email,
		u.FirstName,
		u.LastName,
		u.PasswordHash,
		u.Admin,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	out, err := scanUser(row)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "users_email_unique" {
			return userrepo.User{}, userrepo.ErrAlreadyExists
		}
		return userrepo.User{}, err
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.UserID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, int64(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return userrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	return u, nil
}

func (r *Repo) FindByUsername(ctx context.Context, username domain.Username) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	key := domain.NormalizeUsername(string(username))
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, string(key)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	return u, nil
}

func (r *Repo) ExistsByUsername(ctx context.Context, username domain.Username) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	key := domain.NormalizeUsername(string(username))
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, string(key)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) List(ctx context.Context) ([]userrepo.User, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]userrepo.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanUser(row pgx.Row) (userrepo.User, error) {
	var (
		id        int64
		u         userrepo.User
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Admin, &createdAt, &updatedAt); err != nil {
		return userrepo.User{}, err
	}
	u.ID = domain.UserID(id)
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return u, nil
}
