package sessions

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/metrics"
	clockport "github.com/yoga-studio/booking-api/internal/ports/out/clock"
	"github.com/yoga-studio/booking-api/internal/ports/out/sessionrepo"
	"github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

const (
	maxNameLen        = 50
	maxDescriptionLen = 2500
)

type Service struct {
	sessions sessionrepo.Repository
	users    userrepo.Repository
	teachers teacherrepo.Repository
	clk      clockport.Clock

	// Metrics is optional.
	Metrics *metrics.Metrics
}

func NewService(sessions sessionrepo.Repository, users userrepo.Repository, teachers teacherrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		sessions: sessions,
		users:    users,
		teachers: teachers,
		clk:      clk,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Session, error) {
	return s.sessions.List(ctx)
}

func (s *Service) Get(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	out, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return domain.Session{}, sessionNotFound()
		}
		return domain.Session{}, err
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, in SessionInput) (domain.Session, error) {
	in, err := s.validate(ctx, in)
	if err != nil {
		return domain.Session{}, err
	}
	now := s.clk.Now()
	return s.sessions.Create(ctx, domain.Session{
		Name:        in.Name,
		Date:        in.Date,
		Description: in.Description,
		TeacherID:   in.TeacherID,
		Attendees:   domain.NewAttendeeSet(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Update replaces the writable fields of an existing session. It never creates one.
func (s *Service) Update(ctx context.Context, id domain.SessionID, in SessionInput) (domain.Session, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	in, err = s.validate(ctx, in)
	if err != nil {
		return domain.Session{}, err
	}

	existing.Name = in.Name
	existing.Date = in.Date
	existing.Description = in.Description
	existing.TeacherID = in.TeacherID
	existing.UpdatedAt = s.clk.Now()

	out, err := s.sessions.Save(ctx, existing)
	if err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return domain.Session{}, sessionNotFound()
		}
		return domain.Session{}, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id domain.SessionID) error {
	if err := s.sessions.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return sessionNotFound()
		}
		return err
	}
	return nil
}

// Participate adds userID to the roster of sessionID.
// Checks run in order: session exists, user exists, user not yet on the roster.
func (s *Service) Participate(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) error {
	_, err := s.sessions.UpdateAttendees(ctx, sessionID, func(sess *domain.Session) error {
		if _, err := s.users.FindByID(ctx, userID); err != nil {
			return err
		}
		if !sess.Attendees.Add(userID) {
			return &Error{Status: 400, Code: "ALREADY_PARTICIPATING", Message: "already participating"}
		}
		sess.UpdatedAt = s.clk.Now()
		return nil
	})
	return s.rosterResult("participate", err)
}

// NoLongerParticipate removes userID from the roster of sessionID.
// The user record itself is not consulted.
func (s *Service) NoLongerParticipate(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) error {
	_, err := s.sessions.UpdateAttendees(ctx, sessionID, func(sess *domain.Session) error {
		if !sess.Attendees.Remove(userID) {
			return &Error{Status: 400, Code: "NOT_PARTICIPATING", Message: "not participating"}
		}
		sess.UpdatedAt = s.clk.Now()
		return nil
	})
	return s.rosterResult("leave", err)
}

func (s *Service) rosterResult(action string, err error) error {
	// A user can vanish between the check and the write; the store reports that as userrepo.ErrNotFound.
	switch {
	case errors.Is(err, sessionrepo.ErrNotFound):
		err = sessionNotFound()
	case errors.Is(err, userrepo.ErrNotFound):
		err = userNotFound()
	}
	ae := (*Error)(nil)
	switch {
	case err == nil:
		s.Metrics.RosterChange(action, "ok")
	case errors.As(err, &ae):
		s.Metrics.RosterChange(action, strings.ToLower(ae.Code))
	default:
		s.Metrics.RosterChange(action, "error")
	}
	return err
}

func (s *Service) validate(ctx context.Context, in SessionInput) (SessionInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	details := map[string]any{}
	switch n := utf8.RuneCountInString(in.Name); {
	case n == 0:
		details["name"] = "must not be blank"
	case n > maxNameLen:
		details["name"] = "size must be at most 50"
	}
	if in.Date.IsZero() {
		details["date"] = "must not be null"
	}
	switch n := utf8.RuneCountInString(in.Description); {
	case n == 0:
		details["description"] = "must not be null"
	case n > maxDescriptionLen:
		details["description"] = "size must be at most 2500"
	}
	if in.TeacherID == nil {
		details["teacher_id"] = "must not be null"
	}
	if len(details) > 0 {
		return SessionInput{}, &Error{
			Status:  400,
			Code:    "VALIDATION_ERROR",
			Message: "invalid session",
			Details: details,
		}
	}

	if _, err := s.teachers.FindByID(ctx, *in.TeacherID); err != nil {
		if errors.Is(err, teacherrepo.ErrNotFound) {
			return SessionInput{}, &Error{
				Status:  400,
				Code:    "TEACHER_NOT_FOUND",
				Message: "teacher not found",
				Details: map[string]any{"teacher_id": *in.TeacherID},
			}
		}
		return SessionInput{}, err
	}

	d := in.Date.UTC()
	in.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return in, nil
}
