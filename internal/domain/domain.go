package domain

// DeveloperLevel is a seniority tier. Each tier constrains the allowed
// experience-years range (see engine.ValidateLevelExperience).
type DeveloperLevel string

const (
	LevelJunior   DeveloperLevel = "JUNIOR"
	LevelJungnior DeveloperLevel = "JUNGNIOR"
	LevelSenior   DeveloperLevel = "SENIOR"
)

func (l DeveloperLevel) Valid() bool {
	switch l {
	case LevelJunior, LevelJungnior, LevelSenior:
		return true
	}
	return false
}

// DeveloperSkillType is carried on the record but never interpreted by the
// validation engine.
type DeveloperSkillType string

const (
	SkillFrontEnd  DeveloperSkillType = "FRONT_END"
	SkillBackEnd   DeveloperSkillType = "BACK_END"
	SkillFullStack DeveloperSkillType = "FULL_STACK"
)

func (s DeveloperSkillType) Valid() bool {
	switch s {
	case SkillFrontEnd, SkillBackEnd, SkillFullStack:
		return true
	}
	return false
}

// StatusCode governs visibility in the employed listing. A developer starts
// EMPLOYED and transitions once to RETIRED.
type StatusCode string

const (
	StatusEmployed StatusCode = "EMPLOYED"
	StatusRetired  StatusCode = "RETIRED"
)

type Developer struct {
	MemberID        string             `json:"member_id"`
	Name            string             `json:"name"`
	Age             int                `json:"age"`
	Level           DeveloperLevel     `json:"developer_level" enum:"JUNIOR,JUNGNIOR,SENIOR"`
	SkillType       DeveloperSkillType `json:"developer_skill_type" enum:"FRONT_END,BACK_END,FULL_STACK"`
	ExperienceYears int                `json:"experience_years"`
	StatusCode      StatusCode         `json:"status_code" enum:"EMPLOYED,RETIRED"`
	CreatedAt       string             `json:"created_at" format:"date-time"`
	UpdatedAt       string             `json:"updated_at" format:"date-time"`
}

// RetiredDeveloper is the immutable snapshot written when a developer
// retires. It carries no back-reference to the developer row.
type RetiredDeveloper struct {
	ID        string `json:"id"`
	MemberID  string `json:"member_id"`
	Name      string `json:"name"`
	RetiredAt string `json:"retired_at" format:"date-time"`
}

type Event struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts" format:"date-time"`
	Type     string `json:"type"`
	MemberID string `json:"member_id,omitempty"`
	ActorID  string `json:"actor_id"`
	Payload  string `json:"payload_json"`
}
