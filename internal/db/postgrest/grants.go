package postgrest

import (
	"context"
	"net/url"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

const grantColumns = "id,user_id,product_id,active,expires_at,created_at"

// ListActiveGrantsByUser mirrors queries.Queries.ListActiveGrantsByUser.
func (c *Client) ListActiveGrantsByUser(ctx context.Context, userID string) ([]queries.AccessGrant, error) {
	q := url.Values{}
	q.Set("select", grantColumns)
	q.Set("user_id", "eq."+userID)
	q.Set("active", "eq.true")
	q.Set("order", "created_at.asc")

	var grants []queries.AccessGrant
	if err := c.get(ctx, "/access_grants", q, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}
