package server

import (
	"encoding/json"
	"time"

	"incubator/internal/auth"
	"incubator/internal/incubator"
)

// JSON views for the API. The storage structs stay tag-free; these decide
// what leaves the process.

type userView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func viewUser(u *auth.User) userView {
	return userView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

func viewUsers(users []auth.User) []userView {
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, viewUser(&users[i]))
	}
	return views
}

type taskView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Status    string     `json:"status"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func viewTask(t *incubator.Task) taskView {
	return taskView{
		ID:        t.ID,
		Title:     t.Title,
		Notes:     t.Notes,
		Status:    t.Status,
		DueDate:   t.DueDate,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func viewTasks(tasks []incubator.Task) []taskView {
	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, viewTask(&tasks[i]))
	}
	return views
}

type trainingView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	Location    string    `json:"location,omitempty"`
	Capacity    int       `json:"capacity"`
	Enrolled    int       `json:"enrolled"`
}

func viewTraining(t *incubator.Training) trainingView {
	return trainingView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		StartsAt:    t.StartsAt,
		Location:    t.Location,
		Capacity:    t.Capacity,
		Enrolled:    t.Enrolled,
	}
}

func viewTrainings(trainings []incubator.Training) []trainingView {
	views := make([]trainingView, 0, len(trainings))
	for i := range trainings {
		views = append(views, viewTraining(&trainings[i]))
	}
	return views
}

type applicationView struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"businessName"`
	ContactEmail string    `json:"contactEmail"`
	PDFFilename  string    `json:"pdfFilename"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func viewApplication(a *incubator.Application) applicationView {
	return applicationView{
		ID:           a.ID,
		BusinessName: a.BusinessName,
		ContactEmail: a.ContactEmail,
		PDFFilename:  a.PDFFilename,
		Status:       a.Status,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func viewApplications(apps []incubator.Application) []applicationView {
	views := make([]applicationView, 0, len(apps))
	for i := range apps {
		views = append(views, viewApplication(&apps[i]))
	}
	return views
}

type reportView struct {
	ID                string          `json:"id"`
	Model             string          `json:"model"`
	TotalScore        float64         `json:"totalScore"`
	Eligible          bool            `json:"eligible"`
	Confidence        *float64        `json:"confidence,omitempty"`
	Summary           string          `json:"summary"`
	Criteria          json.RawMessage `json:"criteria,omitempty"`
	Recommendations   json.RawMessage `json:"recommendations,omitempty"`
	ProcessingSeconds float64         `json:"processingSeconds"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func viewReport(r *incubator.AnalysisReport) *reportView {
	if r == nil {
		return nil
	}
	return &reportView{
		ID:                r.ID,
		Model:             r.Model,
		TotalScore:        r.TotalScore,
		Eligible:          r.Eligible,
		Confidence:        r.Confidence,
		Summary:           r.Summary,
		Criteria:          json.RawMessage(r.Criteria),
		Recommendations:   json.RawMessage(r.Recommendations),
		ProcessingSeconds: r.ProcessingSeconds,
		CreatedAt:         r.CreatedAt,
	}
}

type newsView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func viewPost(p *incubator.NewsPost) newsView {
	return newsView{
		ID:          p.ID,
		Title:       p.Title,
		Body:        p.Body,
		Published:   p.Published,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func viewPosts(posts []incubator.NewsPost) []newsView {
	views := make([]newsView, 0, len(posts))
	for i := range posts {
		views = append(views, viewPost(&posts[i]))
	}
	return views
}

type contactMessageView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewContactMessages(msgs []incubator.ContactMessage) []contactMessageView {
	views := make([]contactMessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, contactMessageView{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Message:   m.Message,
			CreatedAt: m.CreatedAt,
		})
	}
	return views
}
