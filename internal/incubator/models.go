package incubator

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

const (
	TaskOpen = "open"
	TaskDone = "done"
)

type Task struct {
	ID        string
	UserID    string
	Title     string
	Notes     string
	Status    string
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Training struct {
	ID          string
	Title       string
	Description string
	StartsAt    time.Time
	Location    string
	Capacity    int
	Enrolled    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrTrainingFull    = errors.New("training is full")
)

// Application statuses follow the review pipeline: a submission starts
// pending, an analyzer run flips it to analyzed or failed, and an admin
// decision lands on accepted or rejected.
const (
	StatusPending  = "pending"
	StatusAnalyzed = "analyzed"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusAnalyzed, StatusAccepted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

type Application struct {
	ID           string
	UserID       *string
	BusinessName string
	ContactEmail string
	PDFFilename  string
	PDFPath      string
	Status       string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AnalysisReport struct {
	ID                string
	ApplicationID     string
	Model             string
	TotalScore        float64
	Eligible          bool
	Confidence        *float64
	Summary           string
	Criteria          []byte // JSON document as produced by the analyzer
	Recommendations   []byte
	ProcessingSeconds float64
	CreatedAt         time.Time
}

type NewsPost struct {
	ID          string
	Title       string
	Body        string
	Published   bool
	PublishedAt *time.Time
	AuthorID    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}

// CalendarEntry is one item in the dashboard calendar feed; tasks carry
// their due date, trainings their start time.
type CalendarEntry struct {
	Kind  string    `json:"kind"` // "task" or "training"
	ID    string    `json:"id"`
	Title string    `json:"title"`
	When  time.Time `json:"when"`
}
