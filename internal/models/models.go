package models

import "time"

// Role of a user within the application
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleAttendee  Role = "attendee"
	RoleUnset     Role = ""
)

// DefaultSelfieEventID is the reserved event identifier under which a
// user's default selfie is stored. The code generator never produces it.
const DefaultSelfieEventID = "000000"

// Event represents an organizer-created photo gallery
type Event struct {
	ID          string    `json:"id"` // 6-digit numeric code
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	OwnerID     string    `json:"owner_id"`
	PhotoCount  int       `json:"photo_count"`
	VideoCount  int       `json:"video_count"`
	GuestCount  int       `json:"guest_count"`
	ShareURL    string    `json:"share_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User represents an application user, keyed by email
type User struct {
	ID            string    `json:"id"` // email
	Name          string    `json:"name"`
	Mobile        string    `json:"mobile,omitempty"`
	Role          Role      `json:"role"`
	CreatedEvents []string  `json:"created_events"`
	PushToken     *string   `json:"push_token,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MatchRecord persists, per (user, event), the selfie used for matching
// and the ordered list of matched photo URLs
type MatchRecord struct {
	UserID      string    `json:"user_id"`
	EventID     string    `json:"event_id"`
	SelfieURL   string    `json:"selfie_url"`
	MatchedURLs []string  `json:"matched_urls"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MatchStatistics summarizes a user's match records
type MatchStatistics struct {
	EventCount int        `json:"event_count"`
	PhotoCount int        `json:"photo_count"`
	FirstDate  *time.Time `json:"first_date,omitempty"`
	LastDate   *time.Time `json:"last_date,omitempty"`
}

// MatchCandidate is an in-memory candidate produced during one matching
// pass, discarded after the pass is persisted
type MatchCandidate struct {
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
}
