package server

import (
	"encoding/json"

	"dmaker/internal/domain"
)

// Request payloads

type CreateDeveloperRequest struct {
	Level           domain.DeveloperLevel     `json:"level" enum:"JUNIOR,JUNGNIOR,SENIOR"`
	SkillType       domain.DeveloperSkillType `json:"skillType" enum:"FRONT_END,BACK_END,FULL_STACK"`
	ExperienceYears *int                      `json:"experienceYears"`
	MemberID        string                    `json:"memberId"`
	Name            string                    `json:"name"`
	Age             *int                      `json:"age"`
}

type EditDeveloperRequest struct {
	Level           domain.DeveloperLevel     `json:"level" enum:"JUNIOR,JUNGNIOR,SENIOR"`
	SkillType       domain.DeveloperSkillType `json:"skillType" enum:"FRONT_END,BACK_END,FULL_STACK"`
	ExperienceYears *int                      `json:"experienceYears"`
}

// Response payloads

// DeveloperSummaryResponse is the projection used by the employed listing.
type DeveloperSummaryResponse struct {
	MemberID  string                    `json:"memberId"`
	Level     domain.DeveloperLevel     `json:"developerLevel" enum:"JUNIOR,JUNGNIOR,SENIOR"`
	SkillType domain.DeveloperSkillType `json:"developerSkillType" enum:"FRONT_END,BACK_END,FULL_STACK"`
}

type DeveloperDetailResponse struct {
	MemberID        string                    `json:"memberId"`
	Name            string                    `json:"name"`
	Age             int                       `json:"age"`
	Level           domain.DeveloperLevel     `json:"developerLevel" enum:"JUNIOR,JUNGNIOR,SENIOR"`
	SkillType       domain.DeveloperSkillType `json:"developerSkillType" enum:"FRONT_END,BACK_END,FULL_STACK"`
	ExperienceYears int                       `json:"experienceYears"`
	StatusCode      domain.StatusCode         `json:"statusCode" enum:"EMPLOYED,RETIRED"`
	CreatedAt       string                    `json:"createdAt" format:"date-time"`
	UpdatedAt       string                    `json:"updatedAt" format:"date-time"`
}

type RetiredDeveloperResponse struct {
	ID        string `json:"id"`
	MemberID  string `json:"memberId"`
	Name      string `json:"name"`
	RetiredAt string `json:"retiredAt" format:"date-time"`
}

type EventResponse struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts" format:"date-time"`
	Type     string         `json:"type"`
	MemberID string         `json:"memberId,omitempty"`
	ActorID  string         `json:"actorId"`
	Payload  map[string]any `json:"payload"`
}

// Conversion helpers

func developerSummary(d domain.Developer) DeveloperSummaryResponse {
	return DeveloperSummaryResponse{
		MemberID:  d.MemberID,
		Level:     d.Level,
		SkillType: d.SkillType,
	}
}

func developerDetail(d domain.Developer) DeveloperDetailResponse {
	return DeveloperDetailResponse{
		MemberID:        d.MemberID,
		Name:            d.Name,
		Age:             d.Age,
		Level:           d.Level,
		SkillType:       d.SkillType,
		ExperienceYears: d.ExperienceYears,
		StatusCode:      d.StatusCode,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func mapSummaries(in []domain.Developer) []DeveloperSummaryResponse {
	out := []DeveloperSummaryResponse{}
	for _, d := range in {
		out = append(out, developerSummary(d))
	}
	return out
}

func retiredResponse(rd domain.RetiredDeveloper) RetiredDeveloperResponse {
	return RetiredDeveloperResponse(rd)
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:       e.ID,
		TS:       e.TS,
		Type:     e.Type,
		MemberID: e.MemberID,
		ActorID:  e.ActorID,
		Payload:  decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}
