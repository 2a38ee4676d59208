package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"dmaker/internal/domain"
	"dmaker/internal/events"
	"dmaker/internal/repo"
)

// Engine composes the validation rules with the record stores. Every public
// operation runs inside one transaction against the workspace database.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CreateDeveloperOptions are parameters for registering a developer.
type CreateDeveloperOptions struct {
	MemberID        string
	Name            string
	Age             int
	Level           domain.DeveloperLevel
	SkillType       domain.DeveloperSkillType
	ExperienceYears int
	ActorID         string
}

// CreateDeveloper validates the level/experience pair, rejects duplicate
// member ids, and persists a new EMPLOYED record.
func (e Engine) CreateDeveloper(ctx context.Context, opts CreateDeveloperOptions) (domain.Developer, error) {
	if err := ValidateLevelExperience(opts.Level, opts.ExperienceYears); err != nil {
		return domain.Developer{}, err
	}
	if !opts.SkillType.Valid() {
		return domain.Developer{}, ErrInvalidSkillType
	}
	if opts.MemberID == "" {
		return domain.Developer{}, errors.New("member id is required")
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Developer{}, err
	}
	defer tx.Rollback()

	if err := e.validateUniqueMemberID(ctx, tx, opts.MemberID); err != nil {
		return domain.Developer{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	d := domain.Developer{
		MemberID:        opts.MemberID,
		Name:            opts.Name,
		Age:             opts.Age,
		Level:           opts.Level,
		SkillType:       opts.SkillType,
		ExperienceYears: opts.ExperienceYears,
		StatusCode:      domain.StatusEmployed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.Repo.InsertDeveloper(ctx, tx, d); err != nil {
		return domain.Developer{}, err
	}
	if err := e.Events.Append(ctx, tx, "developer.created", d.MemberID, opts.ActorID, events.EventPayload{
		"level":            d.Level,
		"experience_years": d.ExperienceYears,
	}); err != nil {
		return domain.Developer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Developer{}, err
	}
	return d, nil
}

// GetAllEmployedDevelopers lists EMPLOYED records ordered by member id.
func (e Engine) GetAllEmployedDevelopers(ctx context.Context) ([]domain.Developer, error) {
	return e.Repo.ListDevelopersByStatus(ctx, domain.StatusEmployed)
}

// GetDeveloperDetail looks up a developer regardless of status.
func (e Engine) GetDeveloperDetail(ctx context.Context, memberID string) (domain.Developer, error) {
	return e.Repo.GetDeveloper(ctx, memberID)
}

// EditDeveloperOptions carry the replacement level/skill/experience values.
// Name, age, member id, and status are never editable.
type EditDeveloperOptions struct {
	Level           domain.DeveloperLevel
	SkillType       domain.DeveloperSkillType
	ExperienceYears int
	ActorID         string
}

// EditDeveloper overwrites level, skill type, and experience years in place.
// The candidate pair is validated before the record lookup; a mismatch on a
// nonexistent member id therefore reports the mismatch, not the absence.
func (e Engine) EditDeveloper(ctx context.Context, memberID string, opts EditDeveloperOptions) (domain.Developer, error) {
	if err := ValidateLevelExperience(opts.Level, opts.ExperienceYears); err != nil {
		return domain.Developer{}, err
	}
	if !opts.SkillType.Valid() {
		return domain.Developer{}, ErrInvalidSkillType
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Developer{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDeveloperTx(ctx, tx, memberID)
	if err != nil {
		return domain.Developer{}, err
	}
	d.Level = opts.Level
	d.SkillType = opts.SkillType
	d.ExperienceYears = opts.ExperienceYears
	d.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateDeveloper(ctx, tx, d); err != nil {
		return domain.Developer{}, err
	}
	if err := e.Events.Append(ctx, tx, "developer.edited", d.MemberID, opts.ActorID, events.EventPayload{
		"level":            d.Level,
		"experience_years": d.ExperienceYears,
	}); err != nil {
		return domain.Developer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Developer{}, err
	}
	return d, nil
}

// RetireDeveloper flips the record to RETIRED and writes a retirement
// snapshot in the same transaction. The operation is not idempotent: a
// second retire on the same member id appends a second snapshot.
func (e Engine) RetireDeveloper(ctx context.Context, memberID, actorID string) (domain.Developer, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Developer{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDeveloperTx(ctx, tx, memberID)
	if err != nil {
		return domain.Developer{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	d.StatusCode = domain.StatusRetired
	d.UpdatedAt = now
	if err := e.Repo.UpdateDeveloper(ctx, tx, d); err != nil {
		return domain.Developer{}, err
	}
	snapshot := domain.RetiredDeveloper{
		ID:        uuid.NewString(),
		MemberID:  d.MemberID,
		Name:      d.Name,
		RetiredAt: now,
	}
	if err := e.Repo.InsertRetiredDeveloper(ctx, tx, snapshot); err != nil {
		return domain.Developer{}, err
	}
	if err := e.Events.Append(ctx, tx, "developer.retired", d.MemberID, actorID, events.EventPayload{
		"snapshot_id": snapshot.ID,
	}); err != nil {
		return domain.Developer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Developer{}, err
	}
	return d, nil
}

// ListRetiredDevelopers exposes the append-only retirement store.
func (e Engine) ListRetiredDevelopers(ctx context.Context) ([]domain.RetiredDeveloper, error) {
	return e.Repo.ListRetiredDevelopers(ctx)
}
