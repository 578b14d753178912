package db

import (
	"context"
	"database/sql"
	"time"
)

const createArtistRequest = `
INSERT INTO artist_requests (user_id, artist_name)
VALUES (?, ?)
RETURNING id, user_id, artist_name, status, created_at, resolved_at, resolved_by
`

type CreateArtistRequestParams struct {
	UserID     int64
	ArtistName string
}

func (q *Queries) CreateArtistRequest(ctx context.Context, arg CreateArtistRequestParams) (ArtistRequest, error) {
	row := q.db.QueryRowContext(ctx, createArtistRequest, arg.UserID, arg.ArtistName)
	var i ArtistRequest
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ArtistName,
		&i.Status,
		&i.CreatedAt,
		&i.ResolvedAt,
		&i.ResolvedBy,
	)
	return i, err
}

const getArtistRequest = `
SELECT id, user_id, artist_name, status, created_at, resolved_at, resolved_by
FROM artist_requests
WHERE id = ?
`

func (q *Queries) GetArtistRequest(ctx context.Context, id int64) (ArtistRequest, error) {
	row := q.db.QueryRowContext(ctx, getArtistRequest, id)
	var i ArtistRequest
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ArtistName,
		&i.Status,
		&i.CreatedAt,
		&i.ResolvedAt,
		&i.ResolvedBy,
	)
	return i, err
}

const listArtistRequests = `
SELECT r.id, r.user_id, r.artist_name, r.status, r.created_at, r.resolved_at, r.resolved_by, u.username
FROM artist_requests r
JOIN users u ON u.id = r.user_id
ORDER BY r.created_at DESC, r.id DESC
`

type ListArtistRequestsRow struct {
	ID         int64
	UserID     int64
	ArtistName string
	Status     string
	CreatedAt  time.Time
	ResolvedAt sql.NullTime
	ResolvedBy sql.NullInt64
	Username   string
}

func (q *Queries) ListArtistRequests(ctx context.Context) ([]ListArtistRequestsRow, error) {
	rows, err := q.db.QueryContext(ctx, listArtistRequests)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListArtistRequestsRow
	for rows.Next() {
		var i ListArtistRequestsRow
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.ArtistName,
			&i.Status,
			&i.CreatedAt,
			&i.ResolvedAt,
			&i.ResolvedBy,
			&i.Username,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countPendingRequestsForArtist = `
SELECT COUNT(*)
FROM artist_requests
WHERE status = 'pending' AND LOWER(artist_name) = LOWER(?)
`

func (q *Queries) CountPendingRequestsForArtist(ctx context.Context, artistName string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPendingRequestsForArtist, artistName)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const resolveArtistRequest = `
UPDATE artist_requests
SET status = ?, resolved_at = CURRENT_TIMESTAMP, resolved_by = ?
WHERE id = ? AND status = 'pending'
`

type ResolveArtistRequestParams struct {
	Status     string
	ResolvedBy int64
	ID         int64
}

// ResolveArtistRequest transitions a pending request to its final status.
// Returns the number of rows changed; zero means the request was missing or
// already resolved.
func (q *Queries) ResolveArtistRequest(ctx context.Context, arg ResolveArtistRequestParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, resolveArtistRequest, arg.Status, arg.ResolvedBy, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
