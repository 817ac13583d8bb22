package question

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

func questionFromRow(row queries.Question) Question {
	return Question{
		ID:              queries.FormatUUID(row.ID),
		Slug:            textPtr(row.Slug),
		Discipline:      textPtr(row.Discipline),
		Difficulty:      row.Difficulty,
		ActiveVersionID: uuidPtr(row.ActiveVersionID),
		CreatedBy:       uuidPtr(row.CreatedBy),
		CreatedAt:       row.CreatedAt.Time,
	}
}

func versionFromRow(row queries.QuestionVersion) Version {
	v := Version{
		ID:            queries.FormatUUID(row.ID),
		QuestionID:    queries.FormatUUID(row.QuestionID),
		VersionNumber: row.VersionNumber,
		Title:         row.Title,
		ContentJSON:   row.ContentJSON,
		OptionsJSON:   row.OptionsJSON,
		Explanation:   textPtr(row.Explanation),
		IsPublished:   row.IsPublished,
		CreatedBy:     uuidPtr(row.CreatedBy),
		CreatedAt:     row.CreatedAt.Time,
	}
	if row.PublishedAt.Valid {
		t := row.PublishedAt.Time
		v.PublishedAt = &t
	}
	return v
}

func versionsFromRows(rows []queries.QuestionVersion) []Version {
	out := make([]Version, 0, len(rows))
	for _, row := range rows {
		out = append(out, versionFromRow(row))
	}
	return out
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func uuidPtr(id pgtype.UUID) *string {
	if !id.Valid {
		return nil
	}
	s := queries.FormatUUID(id)
	return &s
}

func optionalText(s *string) pgtype.Text {
	if s == nil || *s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
