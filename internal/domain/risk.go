package domain

import "strings"

// RiskResult is the aggregate category of a risk report.
type RiskResult string

const (
	RiskResultGood    RiskResult = "Good"
	RiskResultWarning RiskResult = "Warning"
	RiskResultDanger  RiskResult = "Danger" // worst tier
)

// Risk is a single named finding inside a risk report.
type Risk struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
	Score       int    `json:"score,omitempty"`
	Level       string `json:"level,omitempty"` // "danger", "warn", "info"
}

// RiskReport is a third-party contract-risk assessment for one mint.
type RiskReport struct {
	TokenAddress string     `json:"token_address"`
	Rugged       bool       `json:"rugged"`
	Result       RiskResult `json:"result"`
	Risks        []Risk     `json:"risks"`
	Score        int        `json:"score"`
}

// HasRiskNamed reports whether any risk matches one of names, ignoring case
// and surrounding whitespace.
func (r *RiskReport) HasRiskNamed(names []string) bool {
	for _, risk := range r.Risks {
		got := strings.TrimSpace(risk.Name)
		for _, name := range names {
			if strings.EqualFold(got, strings.TrimSpace(name)) {
				return true
			}
		}
	}
	return false
}
