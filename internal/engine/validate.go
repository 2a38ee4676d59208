package engine

import (
	"context"
	"database/sql"

	"dmaker/internal/domain"
)

// Experience-year bounds per level. SENIOR needs at least minSeniorYears,
// JUNGNIOR sits in [minJungniorYears, maxJungniorYears], JUNIOR caps at
// maxJuniorYears. The JUNIOR ceiling and JUNGNIOR floor deliberately overlap
// at 4, and the JUNGNIOR ceiling and SENIOR floor at 10.
const (
	minSeniorYears   = 10
	minJungniorYears = 4
	maxJungniorYears = 10
	maxJuniorYears   = 4
)

// ValidateLevelExperience checks the candidate level/years pair. It is called
// with the requested values on both create and edit, never the stored ones.
func ValidateLevelExperience(level domain.DeveloperLevel, experienceYears int) error {
	if !level.Valid() {
		return ErrInvalidLevel
	}
	switch level {
	case domain.LevelSenior:
		if experienceYears < minSeniorYears {
			return ErrLevelExperienceMismatch
		}
	case domain.LevelJungnior:
		if experienceYears < minJungniorYears || experienceYears > maxJungniorYears {
			return ErrLevelExperienceMismatch
		}
	case domain.LevelJunior:
		if experienceYears > maxJuniorYears {
			return ErrLevelExperienceMismatch
		}
	}
	return nil
}

// validateUniqueMemberID consults the active store inside the creating
// transaction so the duplicate check and the insert commit together.
func (e Engine) validateUniqueMemberID(ctx context.Context, tx *sql.Tx, memberID string) error {
	existing, err := e.Repo.FindDeveloper(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateMemberID
	}
	return nil
}
