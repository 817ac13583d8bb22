package postgrest

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

const versionColumns = "id,question_id,version_number,title,content_json,options_json,explanation,is_published,published_at,created_by,created_at"

// ListPublishedVersions mirrors queries.Queries.ListPublishedVersions.
func (c *Client) ListPublishedVersions(ctx context.Context, arg queries.ListPublishedVersionsParams) ([]queries.QuestionVersion, error) {
	q := url.Values{}
	q.Set("select", versionColumns)
	q.Set("is_published", "eq.true")
	q.Set("order", "published_at.desc,id.asc")
	q.Set("limit", strconv.FormatInt(arg.Limit, 10))
	q.Set("offset", strconv.FormatInt(arg.Offset, 10))

	var versions []queries.QuestionVersion
	if err := c.get(ctx, "/question_versions", q, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

type createQuestionArgs struct {
	Slug        *string         `json:"p_slug"`
	Discipline  *string         `json:"p_discipline"`
	Difficulty  string          `json:"p_difficulty"`
	Title       string          `json:"p_title"`
	ContentJSON json.RawMessage `json:"p_content_json"`
	OptionsJSON json.RawMessage `json:"p_options_json"`
	Explanation *string         `json:"p_explanation"`
	CreatedBy   *string         `json:"p_created_by"`
}

// CreateQuestionWithVersion calls the create_question_with_version function,
// which inserts both rows in one transaction.
func (c *Client) CreateQuestionWithVersion(ctx context.Context, arg queries.CreateQuestionWithVersionParams) (queries.CreateQuestionWithVersionRow, error) {
	args := createQuestionArgs{
		Difficulty:  arg.Difficulty,
		Title:       arg.Title,
		ContentJSON: arg.ContentJSON,
		OptionsJSON: nullJSON(arg.OptionsJSON),
	}
	if arg.Slug.Valid {
		args.Slug = &arg.Slug.String
	}
	if arg.Discipline.Valid {
		args.Discipline = &arg.Discipline.String
	}
	if arg.Explanation.Valid {
		args.Explanation = &arg.Explanation.String
	}
	if arg.CreatedBy.Valid {
		s := queries.FormatUUID(arg.CreatedBy)
		args.CreatedBy = &s
	}

	var out queries.CreateQuestionWithVersionRow
	if err := c.rpc(ctx, "create_question_with_version", args, &out); err != nil {
		return queries.CreateQuestionWithVersionRow{}, err
	}
	return out, nil
}

type publishArgs struct {
	QuestionID string `json:"p_question_id"`
	VersionID  string `json:"p_version_id"`
}

// PublishVersion calls the publish_question_version function. A version that
// does not belong to the question surfaces as queries.ErrNotFound.
func (c *Client) PublishVersion(ctx context.Context, arg queries.PublishVersionParams) (queries.PublishVersionRow, error) {
	var out queries.PublishVersionRow
	err := c.rpc(ctx, "publish_question_version", publishArgs{
		QuestionID: queries.FormatUUID(arg.QuestionID),
		VersionID:  queries.FormatUUID(arg.VersionID),
	}, &out)
	if err != nil {
		return queries.PublishVersionRow{}, err
	}
	return out, nil
}

func nullJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
