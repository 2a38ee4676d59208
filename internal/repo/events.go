package repo

import (
	"context"

	"dmaker/internal/domain"
)

// LatestEvents returns up to n journal entries, newest first, optionally
// filtered by event type and member id.
func (r Repo) LatestEvents(ctx context.Context, n int, evtType, memberID string) ([]domain.Event, error) {
	query := `SELECT id,ts,type,COALESCE(member_id,'') AS member_id,actor_id,payload_json FROM events`
	var (
		clauses []string
		args    []any
	)
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if memberID != "" {
		clauses = append(clauses, "member_id=?")
		args = append(args, memberID)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY id DESC"
	if n > 0 {
		query += " LIMIT ?"
		args = append(args, n)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.MemberID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
