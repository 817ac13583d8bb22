package question

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Difficulty values accepted by the questions table.
const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// MaxPage bounds the page query parameter; larger values are clamped.
const MaxPage = 10000

// DefaultPageSize applies when the configured size is not positive.
const DefaultPageSize = 20

var (
	ErrContentLookupFailed = errors.New("content lookup failed")
	ErrValidationFailed    = errors.New("validation failed")
	ErrNotFound            = errors.New("question version not found")
	ErrCreateFailed        = errors.New("create question failed")
	ErrPublishFailed       = errors.New("publish version failed")
)

// Question is the parent record of a set of versions.
type Question struct {
	ID              string    `json:"id"`
	Slug            *string   `json:"slug"`
	Discipline      *string   `json:"discipline"`
	Difficulty      string    `json:"difficulty"`
	ActiveVersionID *string   `json:"active_version_id"`
	CreatedBy       *string   `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// Version is one immutable revision of a question's content.
type Version struct {
	ID            string          `json:"id"`
	QuestionID    string          `json:"question_id"`
	VersionNumber int32           `json:"version_number"`
	Title         string          `json:"title"`
	ContentJSON   json.RawMessage `json:"content_json"`
	OptionsJSON   json.RawMessage `json:"options_json"`
	Explanation   *string         `json:"explanation"`
	IsPublished   bool            `json:"is_published"`
	PublishedAt   *time.Time      `json:"published_at"`
	CreatedBy     *string         `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PageRequest selects one window of the published listing. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int64 {
	return int64(p.Page-1) * int64(p.PageSize)
}

// ParsePage reads the page query value. Missing, non-numeric or values
// below 1 yield 1; values above MaxPage yield MaxPage.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return MaxPage
	}
	if err != nil || page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// ListResponse is the body of a successful listing.
type ListResponse struct {
	Questions []Version `json:"questions"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
}

// CreateRequest is the admin payload for a new question and its first version.
type CreateRequest struct {
	Slug        *string         `json:"slug" validate:"omitempty,max=200"`
	Discipline  *string         `json:"discipline" validate:"omitempty,max=100"`
	Difficulty  string          `json:"difficulty" validate:"omitempty,oneof=EASY MEDIUM HARD"`
	Title       string          `json:"title" validate:"required,max=500"`
	ContentJSON json.RawMessage `json:"contentJson" validate:"required"`
	OptionsJSON json.RawMessage `json:"optionsJson"`
	Explanation *string         `json:"explanation"`
	CreatedByID *string         `json:"createdById" validate:"omitempty,uuid"`
}

// CreateResponse mirrors the created rows.
type CreateResponse struct {
	Question Question `json:"question"`
	Version  Version  `json:"version"`
}

// PublishRequest names the version to publish.
type PublishRequest struct {
	VersionID string `json:"versionId" validate:"required"`
}

// PublishResponse carries the published version and the updated parent.
type PublishResponse struct {
	PublishedVersion Version  `json:"publishedVersion"`
	Question         Question `json:"question"`
}

// PublishedEvent is emitted on the feed after a publish commits.
type PublishedEvent struct {
	QuestionID  string    `json:"question_id"`
	VersionID   string    `json:"version_id"`
	PublishedAt time.Time `json:"published_at"`
}
