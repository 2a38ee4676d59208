package engine

import "errors"

// Business-rule violations. Each maps to one distinguishable outcome at the
// transport boundary.
var (
	ErrLevelExperienceMismatch = errors.New("developer level and experience years do not match")
	ErrDuplicateMemberID       = errors.New("member id already in use")
	ErrInvalidLevel            = errors.New("unknown developer level")
	ErrInvalidSkillType        = errors.New("unknown developer skill type")
)
