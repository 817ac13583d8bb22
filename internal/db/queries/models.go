package queries

import (
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
)

type Question struct {
	ID              pgtype.UUID        `json:"id"`
	Slug            pgtype.Text        `json:"slug"`
	Discipline      pgtype.Text        `json:"discipline"`
	Difficulty      string             `json:"difficulty"`
	ActiveVersionID pgtype.UUID        `json:"active_version_id"`
	CreatedBy       pgtype.UUID        `json:"created_by"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
}

type QuestionVersion struct {
	ID            pgtype.UUID        `json:"id"`
	QuestionID    pgtype.UUID        `json:"question_id"`
	VersionNumber int32              `json:"version_number"`
	Title         string             `json:"title"`
	ContentJSON   json.RawMessage    `json:"content_json"`
	OptionsJSON   json.RawMessage    `json:"options_json"`
	Explanation   pgtype.Text        `json:"explanation"`
	IsPublished   bool               `json:"is_published"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	CreatedBy     pgtype.UUID        `json:"created_by"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type AccessGrant struct {
	ID        pgtype.UUID        `json:"id"`
	UserID    string             `json:"user_id"`
	ProductID pgtype.Text        `json:"product_id"`
	Active    bool               `json:"active"`
	ExpiresAt pgtype.Timestamptz `json:"expires_at"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
