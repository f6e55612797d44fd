// Package profile manages the user's business profile stored in the remote
// user_profiles table: validation against the closed enumerations, upsert
// keyed on the owning user, partial updates, and a short-lived cache.
package profile

import (
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

// Table is the logical name of the remote profiles table.
const Table = "user_profiles"

// Record is the wire shape of a profile row. Optional columns are pointers
// so an absent column and an empty one stay distinguishable.
type Record struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id"`

	BusinessType        string `json:"business_type"`
	RevenueModel        string `json:"revenue_model"`
	BusinessStage       string `json:"business_stage"`
	MainObjective       string `json:"main_objective"`
	DigitalizationLevel string `json:"digitalization_level"`
	EmployeeCount       string `json:"employee_count"`

	BusinessName         *string `json:"business_name,omitempty"`
	BusinessDescription  *string `json:"business_description,omitempty"`
	Industry             *string `json:"industry,omitempty"`
	TargetMarket         *string `json:"target_market,omitempty"`
	MainGoals            *string `json:"main_goals,omitempty"`
	CurrentChallenges    *string `json:"current_challenges,omitempty"`
	CompetitiveAdvantage *string `json:"competitive_advantage,omitempty"`
	MonthlyRevenue       *string `json:"monthly_revenue,omitempty"`
	MarketingChannels    *string `json:"marketing_channels,omitempty"`
	CurrentTools         *string `json:"current_tools,omitempty"`
	TeamStructure        *string `json:"team_structure,omitempty"`
	SalesProcess         *string `json:"sales_process,omitempty"`
	CustomerAcquisition  *string `json:"customer_acquisition,omitempty"`
	RetentionStrategy    *string `json:"retention_strategy,omitempty"`
	TechStack            *string `json:"tech_stack,omitempty"`
	DataManagement       *string `json:"data_management,omitempty"`
	AutomationLevel      *string `json:"automation_level,omitempty"`
	BudgetRange          *string `json:"budget_range,omitempty"`
	Timeframe            *string `json:"timeframe,omitempty"`
	AdditionalContext    *string `json:"additional_context,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AppProfile converts the row into the in-app profile shape.
func (r *Record) AppProfile() *domain.BusinessProfile {
	if r == nil {
		return nil
	}
	return &domain.BusinessProfile{
		ID:                  r.ID,
		UserID:              r.UserID,
		BusinessType:        r.BusinessType,
		RevenueModel:        r.RevenueModel,
		BusinessStage:       r.BusinessStage,
		MainObjective:       r.MainObjective,
		DigitalizationLevel: r.DigitalizationLevel,
		EmployeeCount:       r.EmployeeCount,
		BusinessName:        deref(r.BusinessName),
	}
}

// ExtendedProfile flattens the row for the report generator; every absent
// optional column becomes the empty string.
func (r *Record) ExtendedProfile() domain.ExtendedProfile {
	if r == nil {
		return domain.ExtendedProfile{}
	}
	return domain.ExtendedProfile{
		BusinessType:        r.BusinessType,
		RevenueModel:        r.RevenueModel,
		BusinessStage:       r.BusinessStage,
		MainObjective:       r.MainObjective,
		DigitalizationLevel: r.DigitalizationLevel,
		EmployeeCount:       r.EmployeeCount,

		BusinessName:         deref(r.BusinessName),
		BusinessDescription:  deref(r.BusinessDescription),
		Industry:             deref(r.Industry),
		TargetMarket:         deref(r.TargetMarket),
		MainGoals:            deref(r.MainGoals),
		CurrentChallenges:    deref(r.CurrentChallenges),
		CompetitiveAdvantage: deref(r.CompetitiveAdvantage),
		MonthlyRevenue:       deref(r.MonthlyRevenue),
		MarketingChannels:    deref(r.MarketingChannels),
		CurrentTools:         deref(r.CurrentTools),
		TeamStructure:        deref(r.TeamStructure),
		SalesProcess:         deref(r.SalesProcess),
		CustomerAcquisition:  deref(r.CustomerAcquisition),
		RetentionStrategy:    deref(r.RetentionStrategy),
		TechStack:            deref(r.TechStack),
		DataManagement:       deref(r.DataManagement),
		AutomationLevel:      deref(r.AutomationLevel),
		BudgetRange:          deref(r.BudgetRange),
		Timeframe:            deref(r.Timeframe),
		AdditionalContext:    deref(r.AdditionalContext),
	}
}

// Patch is a partial profile update. A nil field is left untouched; a
// pointer to the empty string clears the column.
type Patch struct {
	BusinessType        *string
	RevenueModel        *string
	BusinessStage       *string
	MainObjective       *string
	DigitalizationLevel *string
	EmployeeCount       *string

	BusinessName         *string
	BusinessDescription  *string
	Industry             *string
	TargetMarket         *string
	MainGoals            *string
	CurrentChallenges    *string
	CompetitiveAdvantage *string
	MonthlyRevenue       *string
	MarketingChannels    *string
	CurrentTools         *string
	TeamStructure        *string
	SalesProcess         *string
	CustomerAcquisition  *string
	RetentionStrategy    *string
	TechStack            *string
	DataManagement       *string
	AutomationLevel      *string
	BudgetRange          *string
	Timeframe            *string
	AdditionalContext    *string
}

// payload returns only the fields present in the patch, keyed by column.
func (p Patch) payload() map[string]any {
	fields := []struct {
		column string
		value  *string
	}{
		{"business_type", p.BusinessType},
		{"revenue_model", p.RevenueModel},
		{"business_stage", p.BusinessStage},
		{"main_objective", p.MainObjective},
		{"digitalization_level", p.DigitalizationLevel},
		{"employee_count", p.EmployeeCount},
		{"business_name", p.BusinessName},
		{"business_description", p.BusinessDescription},
		{"industry", p.Industry},
		{"target_market", p.TargetMarket},
		{"main_goals", p.MainGoals},
		{"current_challenges", p.CurrentChallenges},
		{"competitive_advantage", p.CompetitiveAdvantage},
		{"monthly_revenue", p.MonthlyRevenue},
		{"marketing_channels", p.MarketingChannels},
		{"current_tools", p.CurrentTools},
		{"team_structure", p.TeamStructure},
		{"sales_process", p.SalesProcess},
		{"customer_acquisition", p.CustomerAcquisition},
		{"retention_strategy", p.RetentionStrategy},
		{"tech_stack", p.TechStack},
		{"data_management", p.DataManagement},
		{"automation_level", p.AutomationLevel},
		{"budget_range", p.BudgetRange},
		{"timeframe", p.Timeframe},
		{"additional_context", p.AdditionalContext},
	}
	out := make(map[string]any)
	for _, f := range fields {
		if f.value != nil {
			out[f.column] = *f.value
		}
	}
	return out
}

// enumColumns maps the categorical columns back to their app field names
// for validation of partial updates.
var enumColumns = map[string]string{
	"business_type":        "businessType",
	"revenue_model":        "revenueModel",
	"business_stage":       "businessStage",
	"main_objective":       "mainObjective",
	"digitalization_level": "digitalizationLevel",
	"employee_count":       "employeeCount",
}
