package risk_warning

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
)

// staticTemplates is the built-in table used by the synchronous path and as the
// last step of the asynchronous lookup chain. Stored templates override it.
var staticTemplates = map[string]map[entity.BrokerType]string{
	"en": {
		entity.BrokerTypeCFD:    "CFD trading involves high risk. {percentage}% of retail accounts lose money when trading CFDs with this provider.",
		entity.BrokerTypeForex:  "Forex trading involves high risk. {percentage}% of retail accounts lose money when trading Forex with this provider.",
		entity.BrokerTypeCrypto: "Cryptocurrency trading involves high risk. {percentage}% of retail accounts lose money when trading cryptocurrencies with this provider.",
		entity.BrokerTypeStock:  "Stock trading involves high risk. {percentage}% of retail accounts lose money when trading stocks with this provider.",
	},
	"de": {
		entity.BrokerTypeCFD:    "CFD-Handel birgt hohe Risiken. {percentage}% der Privatanlegerkonten verlieren Geld beim CFD-Handel mit diesem Anbieter.",
		entity.BrokerTypeForex:  "Forex-Handel birgt hohe Risiken. {percentage}% der Privatanlegerkonten verlieren Geld beim Forex-Handel mit diesem Anbieter.",
		entity.BrokerTypeCrypto: "Kryptowährungshandel birgt hohe Risiken. {percentage}% der Privatanlegerkonten verlieren Geld beim Handel mit Kryptowährungen bei diesem Anbieter.",
		entity.BrokerTypeStock:  "Aktienhandel birgt hohe Risiken. {percentage}% der Privatanlegerkonten verlieren Geld beim Aktienhandel mit diesem Anbieter.",
	},
}

// renderedFragments identify a percentage argument that is already a full
// disclaimer sentence.
var renderedFragments = []string{
	"trading involves high risk",
	"lose money",
	"verlieren Geld",
	"birgt hohe Risiken",
}

var embeddedPercentPattern = regexp.MustCompile(`(\d+)%`)

// StaticTemplate returns the built-in template, falling back to English for an
// unknown language and to CFD for an unknown broker type within that language.
func StaticTemplate(languageCode string, brokerType entity.BrokerType) string {
	byType, ok := staticTemplates[languageCode]
	if !ok {
		byType = staticTemplates[entity.DefaultLanguage]
	}
	if tmpl, ok := byType[brokerType]; ok {
		return tmpl
	}
	return byType[entity.DefaultBrokerType]
}

// StaticTemplateEntries returns the built-in table as entities, sorted by
// language then broker type. Used to seed an empty template table.
func StaticTemplateEntries() []*entity.RiskTemplate {
	var out []*entity.RiskTemplate
	for lang, byType := range staticTemplates {
		for bt, tmpl := range byType {
			out = append(out, &entity.RiskTemplate{
				LanguageCode: lang,
				BrokerType:   bt,
				Template:     tmpl,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LanguageCode != out[j].LanguageCode {
			return out[i].LanguageCode < out[j].LanguageCode
		}
		return out[i].BrokerType < out[j].BrokerType
	})
	return out
}

// ResolveStatic formats a disclaimer from the built-in table without any I/O.
// It is safe to call from contexts that cannot wait on the template store.
func ResolveStatic(percentage any, brokerType, languageCode string) string {
	p := entity.ParseRiskPercentage(unwrapRendered(percentage))
	if p.IsZero() {
		return entity.GenericRiskWarning
	}
	tmpl := StaticTemplate(entity.NormalizeLanguage(languageCode), entity.ParseBrokerType(brokerType))
	return entity.RenderTemplate(tmpl, p.String())
}

// unwrapRendered extracts the number from a percentage argument that already
// holds a rendered disclaimer, so it is not wrapped twice.
func unwrapRendered(percentage any) any {
	var s string
	switch v := percentage.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return percentage
		}
		s = *v
	default:
		return percentage
	}

	if !looksRendered(s) {
		return percentage
	}
	if m := embeddedPercentPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return percentage
}

func looksRendered(s string) bool {
	for _, fragment := range renderedFragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}
