package repo

import (
	"context"
	"database/sql"

	"dmaker/internal/domain"
)

// InsertRetiredDeveloper appends a retirement snapshot. The table is
// append-only and has no uniqueness constraint on member_id: retiring the
// same member twice produces two rows.
func (r Repo) InsertRetiredDeveloper(ctx context.Context, tx *sql.Tx, rd domain.RetiredDeveloper) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO retired_developers(id,member_id,name,retired_at) VALUES (?,?,?,?)`,
		rd.ID, rd.MemberID, rd.Name, rd.RetiredAt)
	return err
}

func (r Repo) ListRetiredDevelopers(ctx context.Context) ([]domain.RetiredDeveloper, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,member_id,name,retired_at FROM retired_developers ORDER BY retired_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RetiredDeveloper
	for rows.Next() {
		var rd domain.RetiredDeveloper
		if err := rows.Scan(&rd.ID, &rd.MemberID, &rd.Name, &rd.RetiredAt); err != nil {
			return nil, err
		}
		res = append(res, rd)
	}
	return res, rows.Err()
}

func (r Repo) ListRetiredDevelopersByMember(ctx context.Context, memberID string) ([]domain.RetiredDeveloper, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,member_id,name,retired_at FROM retired_developers WHERE member_id=? ORDER BY retired_at ASC, id ASC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RetiredDeveloper
	for rows.Next() {
		var rd domain.RetiredDeveloper
		if err := rows.Scan(&rd.ID, &rd.MemberID, &rd.Name, &rd.RetiredAt); err != nil {
			return nil, err
		}
		res = append(res, rd)
	}
	return res, rows.Err()
}
