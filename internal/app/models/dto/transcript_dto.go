package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yigit/transcriptgpa/internal/app/models"
	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/gpa"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
)

// CreateTranscriptTextRequest creates a session from pasted transcript text.
type CreateTranscriptTextRequest struct {
	Text       string `json:"text" binding:"required"`
	SourceFile string `json:"sourceFile" binding:"omitempty,max=255"`
}

// RecordRequest adds or replaces a course row. Length limits follow the stored column
// widths in the transcript package.
type RecordRequest struct {
	CourseCode string   `json:"courseCode" binding:"required,coursecode"`
	Title      string   `json:"title" binding:"omitempty,max=200"`
	Credits    *float64 `json:"credits" binding:"required,gte=0,lte=30"`
	Grade      string   `json:"grade" binding:"required,gradetoken"`
	Term       string   `json:"term" binding:"omitempty,max=50"`
}

// RawCourse converts the request to normalizer input.
func (r RecordRequest) RawCourse() transcript.RawCourse {
	raw := transcript.RawCourse{Code: r.CourseCode, Title: r.Title, Grade: r.Grade, Term: r.Term}
	if r.Credits != nil {
		raw.Credits = formatFloat(*r.Credits)
	}
	return raw
}

// ConfirmMatchRequest links a course row to a requirement.
type ConfirmMatchRequest struct {
	RecordIndex *int `json:"recordIndex" binding:"required,min=0"`
}

// CourseRecordResponse is one row of a session's course table.
type CourseRecordResponse struct {
	Index       int      `json:"index"`
	CourseCode  string   `json:"courseCode"`
	Title       string   `json:"title"`
	Credits     float64  `json:"credits"`
	Grade       string   `json:"grade"`
	GradePoints *float64 `json:"gradePoints"`
	Counted     bool     `json:"counted"`
	Term        string   `json:"term,omitempty"`
	Date        string   `json:"date,omitempty"`
	Matches     *string  `json:"matches"`
	SourceFile  string   `json:"sourceFile,omitempty"`
}

// SessionResponse is a transcript session with its course table.
type SessionResponse struct {
	ID           uuid.UUID              `json:"id"`
	Records      []CourseRecordResponse `json:"records"`
	TotalCredits float64                `json:"totalCredits"`
	Unresolved   []int                  `json:"unresolved"`
	Sources      []models.SourceReport  `json:"sources"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// CreateSessionResponse carries the new session and the bearer token that
// authorizes further calls on it.
type CreateSessionResponse struct {
	Session   SessionResponse `json:"session"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// SourcesResponse lists the extraction reports of a session.
type SourcesResponse struct {
	Sources []models.SourceReport `json:"sources"`
}

// EvaluationResponse is the GPA evaluation of a session.
type EvaluationResponse struct {
	gpa.Evaluation
	Display        map[string]string `json:"display"`
	Shortfalls     []string          `json:"shortfalls"`
	Recommendation string            `json:"recommendation"`
	Confirmed      map[string]int    `json:"confirmed"`
	Missing        []string          `json:"missing"`
	Unresolved     []int             `json:"unresolved"`
}

// SuggestionsResponse ranks candidate rows for one requirement.
type SuggestionsResponse struct {
	RequirementID string              `json:"requirementId"`
	Suggestions   []prereq.Suggestion `json:"suggestions"`
}

// PrerequisiteListResponse is the requirement catalog.
type PrerequisiteListResponse struct {
	Prerequisites []transcript.PrerequisiteRequirement `json:"prerequisites"`
}

// FromCourseTable maps a table to response rows.
func FromCourseTable(t transcript.CourseTable) []CourseRecordResponse {
	out := make([]CourseRecordResponse, 0, len(t))
	for i, r := range t {
		row := CourseRecordResponse{
			Index:       i,
			CourseCode:  r.CourseCode,
			Title:       r.Title,
			Credits:     r.Credits,
			Grade:       r.Grade,
			GradePoints: r.GradePoints,
			Counted:     r.Resolved() && r.Credits > 0,
			Term:        r.Term,
			Matches:     r.Matches,
			SourceFile:  r.SourceFile,
		}
		if r.DateKnown() {
			row.Date = r.Date.Format("2006-01-02")
		}
		out = append(out, row)
	}
	return out
}

// FromTranscriptSession maps a session to its response.
func FromTranscriptSession(s *models.TranscriptSession) SessionResponse {
	unresolved := s.Table.Unresolved()
	if unresolved == nil {
		unresolved = []int{}
	}
	sources := s.Sources
	if sources == nil {
		sources = []models.SourceReport{}
	}
	return SessionResponse{
		ID:           s.ID,
		Records:      FromCourseTable(s.Table),
		TotalCredits: s.Table.TotalCredits(),
		Unresolved:   unresolved,
		Sources:      sources,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
