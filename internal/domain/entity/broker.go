package entity

import (
	"fmt"
	"strings"
	"time"
)

// Broker is a listed financial intermediary as shown on the comparison site.
type Broker struct {
	ID           int64
	Slug         string
	Name         string
	BrokerType   BrokerType
	LogoURL      string
	Rating       float64
	Bonus        string
	Regulation   string
	MinDeposit   string
	MaxLeverage  string
	SpreadsFrom  string
	RiskNote     string // loss percentage as entered by editors, e.g. "74"
	IsFeatured   bool
	Active       bool
	Features     []string
	UpdatedAt    time.Time
	Translations map[string]*BrokerTranslation // keyed by language code
}

// BrokerTranslation holds the per-language editorial text of a broker.
type BrokerTranslation struct {
	BrokerID         int64
	LanguageCode     string
	Description      string
	ButtonText       string
	SearchResultText string
}

// NewBroker creates a new Broker entity with validation.
func NewBroker(id int64, slug, name string, brokerType string, rating float64) (*Broker, error) {
	b := &Broker{
		ID:           id,
		Slug:         strings.TrimSpace(slug),
		Name:         strings.TrimSpace(name),
		BrokerType:   ParseBrokerType(brokerType),
		Rating:       rating,
		Active:       true,
		Translations: make(map[string]*BrokerTranslation),
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// validate checks that all fields have valid values.
func (b *Broker) validate() error {
	if b.ID <= 0 {
		return fmt.Errorf("id must be positive, got %d", b.ID)
	}
	if b.Slug == "" {
		return fmt.Errorf("slug must not be empty")
	}
	if b.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if b.Rating < 0 || b.Rating > 5 {
		return fmt.Errorf("rating must be between 0 and 5, got %v", b.Rating)
	}
	return nil
}

// Translation returns the translation for languageCode, falling back to
// DefaultLanguage. It returns nil when neither exists.
func (b *Broker) Translation(languageCode string) *BrokerTranslation {
	if t, ok := b.Translations[NormalizeLanguage(languageCode)]; ok {
		return t
	}
	return b.Translations[DefaultLanguage]
}

// BrokerFilter narrows a broker listing. Zero values mean "no constraint".
type BrokerFilter struct {
	BrokerType   BrokerType
	FeaturedOnly bool
	Query        string // case-insensitive substring of the broker name
	Limit        int
}

// MaxBrokerListLimit caps a single listing page.
const MaxBrokerListLimit = 100

// Normalize applies defaults and bounds to the filter.
func (f BrokerFilter) Normalize() BrokerFilter {
	f.Query = strings.TrimSpace(f.Query)
	if f.BrokerType != "" {
		f.BrokerType = ParseBrokerType(string(f.BrokerType))
	}
	if f.Limit <= 0 || f.Limit > MaxBrokerListLimit {
		f.Limit = MaxBrokerListLimit
	}
	return f
}
