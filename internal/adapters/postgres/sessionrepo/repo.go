package sessionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/yoga-studio/booking-api/internal/adapters/postgres"
	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/sessionrepo"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of sessionrepo.Repository.
//
// The roster lives in the participate table. UpdateAttendees locks the session row
// (SELECT ... FOR UPDATE) so concurrent roster changes on one session run one at a time.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const sessionColumns = `id, name, date, description, teacher_id, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, s domain.Session) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}

	var out domain.Session
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := scanSession(tx.QueryRow(ctx, `
			INSERT INTO sessions (name, date, description, teacher_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+sessionColumns,
			s.Name,
			dateParam(s.Date),
			s.Description,
			teacherParam(s.TeacherID),
			s.CreatedAt.UTC(),
			s.UpdatedAt.UTC(),
		))
		if err != nil {
			return mapWriteErr(err)
		}
		created.Attendees = domain.NewAttendeeSet()
		for _, uid := range s.Attendees.IDs() {
			if err := insertParticipant(ctx, tx, created.ID, uid); err != nil {
				return err
			}
			created.Attendees.Add(uid)
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

func (r *Repo) Save(ctx context.Context, s domain.Session) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}
	saved, err := scanSession(r.pool.QueryRow(ctx, `
		UPDATE sessions
		SET name = $2,
		    date = $3,
		    description = $4,
		    teacher_id = $5,
		    updated_at = $6
		WHERE id = $1
		RETURNING `+sessionColumns,
		int64(s.ID),
		s.Name,
		dateParam(s.Date),
		s.Description,
		teacherParam(s.TeacherID),
		s.UpdatedAt.UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, sessionrepo.ErrNotFound
		}
		return domain.Session{}, mapWriteErr(err)
	}
	saved.Attendees, err = loadAttendees(ctx, r.pool, saved.ID)
	if err != nil {
		return domain.Session{}, err
	}
	return saved, nil
}

func (r *Repo) DeleteByID(ctx context.Context, id domain.SessionID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, int64(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sessionrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}
	return findSession(ctx, r.pool, id, false)
}

func (r *Repo) List(ctx context.Context) ([]domain.Session, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Session, 0)
	byID := make(map[domain.SessionID]int)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		s.Attendees = domain.NewAttendeeSet()
		byID[s.ID] = len(out)
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	prow, err := r.pool.Query(ctx, `SELECT session_id, user_id FROM participate ORDER BY session_id, user_id`)
	if err != nil {
		return nil, err
	}
	defer prow.Close()
	for prow.Next() {
		var sid, uid int64
		if err := prow.Scan(&sid, &uid); err != nil {
			return nil, err
		}
		if i, ok := byID[domain.SessionID(sid)]; ok {
			out[i].Attendees.Add(domain.UserID(uid))
		}
	}
	return out, prow.Err()
}

func (r *Repo) UpdateAttendees(ctx context.Context, id domain.SessionID, fn sessionrepo.MutateFunc) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}

	var out domain.Session
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := findSession(ctx, tx, id, true)
		if err != nil {
			return err
		}
		work := current
		work.Attendees = current.Attendees.Clone()
		if err := fn(&work); err != nil {
			return err
		}

		for uid := range current.Attendees {
			if work.Attendees.Has(uid) {
				continue
			}
			if _, err := tx.Exec(ctx, `DELETE FROM participate WHERE session_id = $1 AND user_id = $2`, int64(id), int64(uid)); err != nil {
				return err
			}
		}
		for _, uid := range work.Attendees.IDs() {
			if current.Attendees.Has(uid) {
				continue
			}
			if err := insertParticipant(ctx, tx, id, uid); err != nil {
				return err
			}
		}

		if !work.UpdatedAt.IsZero() && !work.UpdatedAt.Equal(current.UpdatedAt) {
			if _, err := tx.Exec(ctx, `UPDATE sessions SET updated_at = $2 WHERE id = $1`, int64(id), work.UpdatedAt.UTC()); err != nil {
				return err
			}
			current.UpdatedAt = work.UpdatedAt.UTC()
		}
		current.Attendees = work.Attendees
		out = current
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

func (r *Repo) DetachUser(ctx context.Context, userID domain.UserID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM participate WHERE user_id = $1`, int64(userID))
	return err
}

func findSession(ctx context.Context, q querier, id domain.SessionID, forUpdate bool) (domain.Session, error) {
	sql := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	s, err := scanSession(q.QueryRow(ctx, sql, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, sessionrepo.ErrNotFound
		}
		return domain.Session{}, err
	}
	s.Attendees, err = loadAttendees(ctx, q, id)
	if err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func loadAttendees(ctx context.Context, q querier, id domain.SessionID) (domain.AttendeeSet, error) {
	rows, err := q.Query(ctx, `SELECT user_id FROM participate WHERE session_id = $1`, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := domain.NewAttendeeSet()
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out.Add(domain.UserID(uid))
	}
	return out, rows.Err()
}

func insertParticipant(ctx context.Context, tx pgx.Tx, sid domain.SessionID, uid domain.UserID) error {
	_, err := tx.Exec(ctx, `INSERT INTO participate (session_id, user_id) VALUES ($1, $2)`, int64(sid), int64(uid))
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return fmt.Errorf("participant %d: %w", uid, userrepo.ErrNotFound)
		}
		return err
	}
	return nil
}

func mapWriteErr(err error) error {
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode && pe.ConstraintName == "sessions_teacher_id_fkey" {
		return fmt.Errorf("session teacher: %w", err)
	}
	return err
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		id        int64
		s         domain.Session
		date      pgtype.Date
		teacherID *int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &s.Name, &date, &s.Description, &teacherID, &createdAt, &updatedAt); err != nil {
		return domain.Session{}, err
	}
	s.ID = domain.SessionID(id)
	if date.Valid {
		s.Date = time.Date(date.Time.Year(), date.Time.Month(), date.Time.Day(), 0, 0, 0, 0, time.UTC)
	}
	if teacherID != nil {
		tid := domain.TeacherID(*teacherID)
		s.TeacherID = &tid
	}
	s.CreatedAt = createdAt.UTC()
	s.UpdatedAt = updatedAt.UTC()
	return s, nil
}

func dateParam(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}

func teacherParam(id *domain.TeacherID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}
