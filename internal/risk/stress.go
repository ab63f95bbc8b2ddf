package risk

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/alpinist/internal/marketdata"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
)

const scenarioDateLayout = "2006-01-02"

// Scenario is a historical market window replayed against the current
// allocation.
type Scenario struct {
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start" yaml:"-"`
	End   time.Time `json:"end" yaml:"-"`
}

// scenarioYAML is the on-disk shape with string dates.
type scenarioYAML struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// UnmarshalYAML parses scenario dates in YYYY-MM-DD form.
func (s *Scenario) UnmarshalYAML(value *yaml.Node) error {
	var raw scenarioYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	start, err := time.Parse(scenarioDateLayout, raw.Start)
	if err != nil {
		return fmt.Errorf("scenario %q: invalid start date %q: %w", raw.Name, raw.Start, err)
	}
	end, err := time.Parse(scenarioDateLayout, raw.End)
	if err != nil {
		return fmt.Errorf("scenario %q: invalid end date %q: %w", raw.Name, raw.End, err)
	}
	if end.Before(start) {
		return fmt.Errorf("scenario %q: end %s before start %s", raw.Name, raw.End, raw.Start)
	}
	s.Name = raw.Name
	s.Start = start
	s.End = end
	return nil
}

// MarshalYAML writes scenario dates back in YYYY-MM-DD form.
func (s Scenario) MarshalYAML() (interface{}, error) {
	return scenarioYAML{
		Name:  s.Name,
		Start: s.Start.Format(scenarioDateLayout),
		End:   s.End.Format(scenarioDateLayout),
	}, nil
}

func mustDate(s string) time.Time {
	t, err := time.Parse(scenarioDateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultScenarios is the built-in catalog of historical stress windows.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "COVID-19 Crash", Start: mustDate("2020-02-19"), End: mustDate("2020-03-23")},
		{Name: "2022 Rate Hike Correction", Start: mustDate("2022-01-03"), End: mustDate("2022-06-16")},
		{Name: "2018 Q4 Selloff", Start: mustDate("2018-10-01"), End: mustDate("2018-12-24")},
	}
}

// LoadScenarios reads a scenario catalog from a YAML file.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario catalog: %w", err)
	}
	var scenarios []Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("parsing scenario catalog %s: %w", path, err)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("scenario catalog %s is empty", path)
	}
	return scenarios, nil
}

// StressResult is the estimated portfolio impact of one scenario.
type StressResult struct {
	Scenario        string  `json:"scenario"`
	PortfolioImpact float64 `json:"portfolio_impact"`
	TickersCovered  int     `json:"tickers_covered"`
}

// StressRunner replays scenario windows against an allocation.
type StressRunner struct {
	provider  marketdata.Provider
	scenarios []Scenario
}

// NewStressRunner creates a runner over the given scenario catalog. A nil
// or empty catalog falls back to DefaultScenarios.
func NewStressRunner(provider marketdata.Provider, scenarios []Scenario) *StressRunner {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}
	return &StressRunner{provider: provider, scenarios: scenarios}
}

// Run estimates the allocation's return over each scenario window as the
// weighted sum of per-instrument simple returns, with weights renormalized
// over the instruments that have data in the window. Scenarios where no
// instrument has data are omitted from the result.
func (r *StressRunner) Run(ctx context.Context, alloc portfolio.Allocation) ([]StressResult, error) {
	tickers := alloc.Tickers()

	results := make([]StressResult, 0, len(r.scenarios))
	for _, scenario := range r.scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seriesByTicker, err := r.provider.DailyCloses(ctx, tickers, scenario.Start, scenario.End)
		if err != nil {
			return nil, fmt.Errorf("stress scenario %q: %w", scenario.Name, err)
		}

		// position order keeps the float summation reproducible
		weightedImpact := 0.0
		coveredWeight := 0.0
		covered := 0
		for _, p := range alloc.Positions {
			series, ok := seriesByTicker[p.Ticker]
			if !ok || series.Len() < 2 {
				continue
			}
			weightedImpact += p.Weight * series.SimpleReturn()
			coveredWeight += p.Weight
			covered++
		}

		if covered == 0 || coveredWeight <= 0 {
			log.Debug().
				Str("scenario", scenario.Name).
				Msg("No price data in scenario window, skipping")
			continue
		}

		results = append(results, StressResult{
			Scenario:        scenario.Name,
			PortfolioImpact: round4(weightedImpact / coveredWeight),
			TickersCovered:  covered,
		})
	}
	return results, nil
}
