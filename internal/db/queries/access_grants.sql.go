package queries

import "context"

const listActiveGrantsByUser = `
SELECT id, user_id, product_id, active, expires_at, created_at
FROM access_grants
WHERE user_id = $1 AND active = true
ORDER BY created_at ASC
`

func (q *Queries) ListActiveGrantsByUser(ctx context.Context, userID string) ([]AccessGrant, error) {
	rows, err := q.db.Query(ctx, listActiveGrantsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AccessGrant
	for rows.Next() {
		var i AccessGrant
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.ProductID,
			&i.Active,
			&i.ExpiresAt,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
