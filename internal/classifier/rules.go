package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fintrack/internal/models"
)

//go:embed rules.yaml
var defaultRules []byte

// investmentOrder is the fixed priority of the investment keyword sets.
var investmentOrder = []models.InvestmentType{
	models.InvestmentTypeStocks,
	models.InvestmentTypeMutualFunds,
	models.InvestmentTypeCrypto,
	models.InvestmentTypeRealEstate,
	models.InvestmentTypeOther,
}

// billOrder is the fixed priority of the bill keyword sets. Bills that match
// none of them are "other".
var billOrder = []models.BillType{
	models.BillTypeHome,
	models.BillTypeMobile,
	models.BillTypeInternet,
	models.BillTypeGym,
}

// InvestmentRule is one keyword set for an investment type.
type InvestmentRule struct {
	Type       models.InvestmentType `yaml:"type"`
	Confidence models.Confidence     `yaml:"confidence"`
	Keywords   []string              `yaml:"keywords"`
}

// BillRule is one keyword set for a bill type.
type BillRule struct {
	Type     models.BillType `yaml:"type"`
	Keywords []string        `yaml:"keywords"`
}

// Rules is the keyword rule table.
type Rules struct {
	Investments []InvestmentRule `yaml:"investments"`
	Bills       []BillRule       `yaml:"bills"`
}

// DefaultRules returns the embedded rule table.
func DefaultRules() *Rules {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yaml is invalid: %v", err))
	}
	return rules
}

// LoadRules reads a rule table from path, or returns the embedded table
// when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table. Keywords are
// lower-cased and blank keywords dropped.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	if len(rules.Investments) != len(investmentOrder) {
		return nil, fmt.Errorf("rules must define exactly %d investment sets in order %v, got %d",
			len(investmentOrder), investmentOrder, len(rules.Investments))
	}
	for i := range rules.Investments {
		r := &rules.Investments[i]
		if r.Type != investmentOrder[i] {
			return nil, fmt.Errorf("investment set %d is %q, want %q", i, r.Type, investmentOrder[i])
		}
		switch r.Confidence {
		case models.ConfidenceHigh, models.ConfidenceMedium:
		case "":
			r.Confidence = models.ConfidenceHigh
			if r.Type == models.InvestmentTypeOther {
				r.Confidence = models.ConfidenceMedium
			}
		default:
			return nil, fmt.Errorf("investment set %q has invalid confidence %q", r.Type, r.Confidence)
		}
		r.Keywords = normalizeKeywords(r.Keywords)
	}

	if len(rules.Bills) != len(billOrder) {
		return nil, fmt.Errorf("rules must define exactly %d bill sets in order %v, got %d",
			len(billOrder), billOrder, len(rules.Bills))
	}
	for i := range rules.Bills {
		r := &rules.Bills[i]
		if r.Type != billOrder[i] {
			return nil, fmt.Errorf("bill set %d is %q, want %q", i, r.Type, billOrder[i])
		}
		r.Keywords = normalizeKeywords(r.Keywords)
	}

	return &rules, nil
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
