package repo

import (
	"context"
	"database/sql"
	"errors"

	"dmaker/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const developerColumns = `member_id,name,age,developer_level,developer_skill_type,experience_years,status_code,created_at,updated_at`

func scanDeveloper(scan func(dest ...any) error) (domain.Developer, error) {
	var d domain.Developer
	err := scan(&d.MemberID, &d.Name, &d.Age, &d.Level, &d.SkillType, &d.ExperienceYears, &d.StatusCode, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) InsertDeveloper(ctx context.Context, tx *sql.Tx, d domain.Developer) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO developers(`+developerColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		d.MemberID, d.Name, d.Age, d.Level, d.SkillType, d.ExperienceYears, d.StatusCode, d.CreatedAt, d.UpdatedAt)
	return err
}

// GetDeveloper looks up a developer by member id regardless of status.
func (r Repo) GetDeveloper(ctx context.Context, memberID string) (domain.Developer, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+developerColumns+` FROM developers WHERE member_id=?`, memberID)
	return scanDeveloper(row.Scan)
}

func (r Repo) GetDeveloperTx(ctx context.Context, tx *sql.Tx, memberID string) (domain.Developer, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+developerColumns+` FROM developers WHERE member_id=?`, memberID)
	return scanDeveloper(row.Scan)
}

// FindDeveloper is the absent-as-value lookup: a missing row returns
// (nil, nil) instead of ErrNotFound. Used by the duplicate check on create.
func (r Repo) FindDeveloper(ctx context.Context, tx *sql.Tx, memberID string) (*domain.Developer, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+developerColumns+` FROM developers WHERE member_id=?`, memberID)
	d, err := scanDeveloper(row.Scan)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDevelopersByStatus returns developers with the given status, ordered by
// member id for deterministic listings.
func (r Repo) ListDevelopersByStatus(ctx context.Context, status domain.StatusCode) ([]domain.Developer, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+developerColumns+` FROM developers WHERE status_code=? ORDER BY member_id ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Developer
	for rows.Next() {
		d, err := scanDeveloper(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) UpdateDeveloper(ctx context.Context, tx *sql.Tx, d domain.Developer) error {
	res, err := tx.ExecContext(ctx, `UPDATE developers SET developer_level=?, developer_skill_type=?, experience_years=?, status_code=?, updated_at=? WHERE member_id=?`,
		d.Level, d.SkillType, d.ExperienceYears, d.StatusCode, d.UpdatedAt, d.MemberID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
