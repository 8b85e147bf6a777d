package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PercentagePlaceholder is the marker substituted with the loss percentage.
const PercentagePlaceholder = "{percentage}"

// GenericRiskWarning is returned whenever no percentage is known.
const GenericRiskWarning = "Trading involves risk. Your capital may be at risk."

// literalPercentPattern matches an inlined percentage such as "74%" in legacy
// templates that were stored without the placeholder.
var literalPercentPattern = regexp.MustCompile(`\d+%`)

// RiskTemplate is a localized risk warning for one (language, broker type) pair.
type RiskTemplate struct {
	LanguageCode string
	BrokerType   BrokerType
	Template     string
	UpdatedAt    time.Time
}

// NewRiskTemplate creates a RiskTemplate with normalized keys and a repaired
// template text. It fails when the text does not end up with exactly one placeholder.
func NewRiskTemplate(languageCode string, brokerType string, template string) (*RiskTemplate, error) {
	rt := &RiskTemplate{
		LanguageCode: NormalizeLanguage(languageCode),
		BrokerType:   ParseBrokerType(brokerType),
		Template:     RepairTemplate(strings.TrimSpace(template)),
	}
	if err := rt.validate(); err != nil {
		return nil, err
	}
	return rt, nil
}

// validate checks that all fields have valid values.
func (rt *RiskTemplate) validate() error {
	if len(rt.LanguageCode) < 2 || len(rt.LanguageCode) > 8 {
		return fmt.Errorf("languageCode must be 2-8 characters, got %q", rt.LanguageCode)
	}
	if rt.Template == "" {
		return fmt.Errorf("template must not be empty")
	}
	switch n := strings.Count(rt.Template, PercentagePlaceholder); n {
	case 1:
	case 0:
		return fmt.Errorf("template must contain %s or a literal percentage", PercentagePlaceholder)
	default:
		return fmt.Errorf("template must contain %s exactly once, found %d", PercentagePlaceholder, n)
	}
	return nil
}

// CacheKey returns the key the template is cached under.
func (rt *RiskTemplate) CacheKey() string {
	return TemplateCacheKey(rt.LanguageCode, rt.BrokerType)
}

// Render substitutes the percentage into the template.
func (rt *RiskTemplate) Render(percentage string) string {
	return RenderTemplate(rt.Template, percentage)
}

// TemplateCacheKey builds the "<language>:<brokerType>" key.
func TemplateCacheKey(languageCode string, brokerType BrokerType) string {
	return languageCode + ":" + string(brokerType)
}

// HasPlaceholder reports whether template carries the percentage marker.
func HasPlaceholder(template string) bool {
	return strings.Contains(template, PercentagePlaceholder)
}

// RepairTemplate rewrites the first literal percentage of a template lacking the
// placeholder into "{percentage}%". Templates that already carry the marker, or
// have no literal percentage, are returned unchanged.
func RepairTemplate(template string) string {
	if HasPlaceholder(template) {
		return template
	}
	loc := literalPercentPattern.FindStringIndex(template)
	if loc == nil {
		return template
	}
	return template[:loc[0]] + PercentagePlaceholder + "%" + template[loc[1]:]
}

// RenderTemplate replaces the first placeholder in template with percentage.
func RenderTemplate(template, percentage string) string {
	return strings.Replace(template, PercentagePlaceholder, percentage, 1)
}
