package domain

import "time"

// User is the identity record issued by the remote auth service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the credential bundle issued by the remote auth service.
// It is replaced wholesale on every successful auth operation or refresh.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	ExpiresAt    int64  `json:"expiresAt"`
	User         User   `json:"user"`
}

// Expiry returns the session expiry as a time, or the zero time when the
// remote service did not report one.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0).UTC()
}

// BusinessProfile is the in-app shape of a user's business profile.
// The six categorical fields are always members of their enumerations.
type BusinessProfile struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	BusinessType        string    `json:"businessType"`
	RevenueModel        string    `json:"revenueModel"`
	BusinessStage       string    `json:"businessStage"`
	MainObjective       string    `json:"mainObjective"`
	DigitalizationLevel string    `json:"digitalizationLevel"`
	EmployeeCount       string    `json:"employeeCount"`
	BusinessName        string    `json:"businessName"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Complete reports whether all six required categorical fields are set.
func (p *BusinessProfile) Complete() bool {
	if p == nil {
		return false
	}
	return p.BusinessType != "" && p.RevenueModel != "" && p.BusinessStage != "" &&
		p.MainObjective != "" && p.DigitalizationLevel != "" && p.EmployeeCount != ""
}

// ExtendedProfile carries the full profile handed to the report generator.
// Every optional attribute defaults to the empty string when absent.
type ExtendedProfile struct {
	BusinessType        string `json:"businessType"`
	RevenueModel        string `json:"revenueModel"`
	BusinessStage       string `json:"businessStage"`
	MainObjective       string `json:"mainObjective"`
	DigitalizationLevel string `json:"digitalizationLevel"`
	EmployeeCount       string `json:"employeeCount"`

	BusinessName         string `json:"businessName"`
	BusinessDescription  string `json:"businessDescription"`
	Industry             string `json:"industry"`
	TargetMarket         string `json:"targetMarket"`
	MainGoals            string `json:"mainGoals"`
	CurrentChallenges    string `json:"currentChallenges"`
	CompetitiveAdvantage string `json:"competitiveAdvantage"`
	MonthlyRevenue       string `json:"monthlyRevenue"`
	MarketingChannels    string `json:"marketingChannels"`
	CurrentTools         string `json:"currentTools"`
	TeamStructure        string `json:"teamStructure"`
	SalesProcess         string `json:"salesProcess"`
	CustomerAcquisition  string `json:"customerAcquisition"`
	RetentionStrategy    string `json:"retentionStrategy"`
	TechStack            string `json:"techStack"`
	DataManagement       string `json:"dataManagement"`
	AutomationLevel      string `json:"automationLevel"`
	BudgetRange          string `json:"budgetRange"`
	Timeframe            string `json:"timeframe"`
	AdditionalContext    string `json:"additionalContext"`
}

// AIReport is an immutable generated report owned by a single user.
type AIReport struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ProfileID  string    `json:"profileId"`
	ModuleID   string    `json:"moduleId"`
	ModuleName string    `json:"moduleName"`
	UserInput  string    `json:"userInput"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ReportStats aggregates a user's report history.
type ReportStats struct {
	Total    int            `json:"total"`
	ByModule map[string]int `json:"byModule"`
	Recent   []AIReport     `json:"recent"`
}
