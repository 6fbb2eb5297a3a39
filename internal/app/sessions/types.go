package sessions

import (
	"time"

	"github.com/yoga-studio/booking-api/internal/domain"
)

// SessionInput carries the writable fields of a session.
// The roster is not part of it; attendees change only through Participate and NoLongerParticipate.
type SessionInput struct {
	Name        string
	Date        time.Time
	Description string
	TeacherID   *domain.TeacherID
}
