package analyst

import (
	"time"
)

// Metrics holds the optional fundamental metrics attached to a finding.
// Every field except Currency may be absent when the data provider has no
// coverage for the instrument.
type Metrics struct {
	MarketCap     *float64 `json:"market_cap,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	PEGRatio      *float64 `json:"peg_ratio,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	EPS           *float64 `json:"eps,omitempty"`
	ProfitMargin  *float64 `json:"profit_margin,omitempty"`
	High52Week    *float64 `json:"high_52_week,omitempty"`
	Low52Week     *float64 `json:"low_52_week,omitempty"`
	TargetPrice   *float64 `json:"target_price,omitempty"`
	Currency      string   `json:"currency"`
}

// Governance holds governance-risk sub-scores on a 1-10 scale, lower better.
// Absent scores mean the rating provider had no coverage.
type Governance struct {
	OverallRisk           *int `json:"overall_risk,omitempty"`
	BoardRisk             *int `json:"board_risk,omitempty"`
	AuditRisk             *int `json:"audit_risk,omitempty"`
	CompensationRisk      *int `json:"compensation_risk,omitempty"`
	ShareholderRightsRisk *int `json:"shareholder_rights_risk,omitempty"`
}

// Finding is one analyst evaluation of a single instrument. Findings are
// immutable once produced; a revision pass supersedes the previous finding
// for the same ticker rather than mutating it.
type Finding struct {
	Ticker         string         `json:"ticker"`
	Company        string         `json:"company"`
	Sector         string         `json:"sector"`
	Industry       string         `json:"industry"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	KeyDrivers     []string       `json:"key_drivers"`
	Risks          []string       `json:"risks"`
	TechnicalView  string         `json:"technical_view"`
	GovernanceNote string         `json:"governance_note,omitempty"`
	Metrics        Metrics        `json:"metrics"`
	Governance     *Governance    `json:"governance,omitempty"`
	Generation     int            `json:"generation"`
	ProducedAt     time.Time      `json:"produced_at"`
}

// Sanitize clamps every bounded numeric field to its declared range and
// normalizes the recommendation. Collaborator output is never trusted to be
// in range. Returns the sanitized copy.
func (f Finding) Sanitize() Finding {
	f.Confidence = clamp01(f.Confidence)
	if !f.Recommendation.Valid() {
		if rec, err := ParseRecommendation(string(f.Recommendation)); err == nil {
			f.Recommendation = rec
		} else {
			f.Recommendation = Neutral
		}
	}
	if f.Governance != nil {
		g := *f.Governance
		g.OverallRisk = clampScore(g.OverallRisk)
		g.BoardRisk = clampScore(g.BoardRisk)
		g.AuditRisk = clampScore(g.AuditRisk)
		g.CompensationRisk = clampScore(g.CompensationRisk)
		g.ShareholderRightsRisk = clampScore(g.ShareholderRightsRisk)
		f.Governance = &g
	}
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampScore clamps a governance sub-score into 1..10, preserving absence.
func clampScore(v *int) *int {
	if v == nil {
		return nil
	}
	s := *v
	if s < 1 {
		s = 1
	}
	if s > 10 {
		s = 10
	}
	return &s
}
