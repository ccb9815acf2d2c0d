package domain

import "time"

const (
	QuoteStatusQuoted    = "quoted"
	QuoteStatusPurchased = "purchased"
	QuoteStatusStock     = "stock"
	QuoteStatusSold      = "sold"
)

// Hair attribute dimensions. Texture, length, circumference, condition and
// quality carry configured prices; color carries none by convention unless
// the configuration says otherwise.
const (
	HairAttrTexture       = "texture"
	HairAttrLength        = "length"
	HairAttrCircumference = "circumference"
	HairAttrCondition     = "condition"
	HairAttrQuality       = "quality"
	HairAttrColor         = "color"
)

type HairOption struct {
	Value   string  `json:"value"`
	Price   float64 `json:"price"`
	Enabled bool    `json:"enabled"`
}

// HairConfig is the externally editable pricing configuration. The pricing
// engine reads it and never writes it.
type HairConfig struct {
	Version        int          `json:"version"`
	Textures       []HairOption `json:"textures"`
	Lengths        []HairOption `json:"lengths"`
	Circumferences []HairOption `json:"circumferences"`
	Conditions     []HairOption `json:"conditions"`
	Qualities      []HairOption `json:"qualities"`
	Colors         []HairOption `json:"colors"`
	MaxPriceLimit  float64      `json:"max_price_limit"`
	MonthlyGoal    float64      `json:"monthly_goal"`
	BlockMessage   string       `json:"block_message"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// OptionsFor returns the option table for one attribute dimension.
func (c HairConfig) OptionsFor(attr string) []HairOption {
	switch attr {
	case HairAttrTexture:
		return c.Textures
	case HairAttrLength:
		return c.Lengths
	case HairAttrCircumference:
		return c.Circumferences
	case HairAttrCondition:
		return c.Conditions
	case HairAttrQuality:
		return c.Qualities
	case HairAttrColor:
		return c.Colors
	}
	return nil
}

// HairSelection holds the evaluator's chosen attribute values.
type HairSelection struct {
	Texture       string `json:"texture"`
	Length        string `json:"length"`
	Circumference string `json:"circumference"`
	Condition     string `json:"condition"`
	Quality       string `json:"quality"`
	Color         string `json:"color"`
}

// Value returns the selected value for one attribute dimension.
func (s HairSelection) Value(attr string) string {
	switch attr {
	case HairAttrTexture:
		return s.Texture
	case HairAttrLength:
		return s.Length
	case HairAttrCircumference:
		return s.Circumference
	case HairAttrCondition:
		return s.Condition
	case HairAttrQuality:
		return s.Quality
	case HairAttrColor:
		return s.Color
	}
	return ""
}

func (s *HairSelection) SetValue(attr string, value string) {
	switch attr {
	case HairAttrTexture:
		s.Texture = value
	case HairAttrLength:
		s.Length = value
	case HairAttrCircumference:
		s.Circumference = value
	case HairAttrCondition:
		s.Condition = value
	case HairAttrQuality:
		s.Quality = value
	case HairAttrColor:
		s.Color = value
	}
}

// HairSeller identifies the person selling the hair. All fields are
// mandatory before a quote may progress to purchased.
type HairSeller struct {
	Name       string `json:"name"`
	TaxID      string `json:"tax_id"`
	PayoutKey  string `json:"payout_key"`
	Region     string `json:"region"`
	AgeBracket string `json:"age_bracket"`
}

// HairPhotos are opaque references to the three mandatory photographs.
type HairPhotos struct {
	Front string `json:"front"`
	Side  string `json:"side"`
	Back  string `json:"back"`
}

type HairQuote struct {
	ID            string        `json:"id"`
	EvaluatorID   string        `json:"evaluator_id"`
	EvaluatorName string        `json:"evaluator_name"`
	CreatedAt     time.Time     `json:"created_at"`
	Selection     HairSelection `json:"selection"`
	Total         float64       `json:"total"`
	Status        string        `json:"status"`
	Seller        *HairSeller   `json:"seller,omitempty"`
	Photos        *HairPhotos   `json:"photos,omitempty"`
	ApprovalCode  string        `json:"approval_code,omitempty"`
	PurchasedAt   *time.Time    `json:"purchased_at,omitempty"`
}

type HairQuoteCreateRequest struct {
	EvaluatorID string        `json:"evaluator_id"`
	Selection   HairSelection `json:"selection"`
}

// HairQuoteEvaluation is the pricing result surfaced to the evaluator before
// any persistence. When Blocked is true the purchase flow is unreachable.
type HairQuoteEvaluation struct {
	Selection    HairSelection `json:"selection"`
	Total        float64       `json:"total"`
	Blocked      bool          `json:"blocked"`
	BlockMessage string        `json:"block_message,omitempty"`
	ExcessAmount float64       `json:"excess_amount,omitempty"`
}

type HairPurchaseRequest struct {
	Seller HairSeller `json:"seller"`
	Photos HairPhotos `json:"photos"`
}

type HairGoalProgress struct {
	EvaluatorID string  `json:"evaluator_id"`
	Month       string  `json:"month"`
	Counted     float64 `json:"counted"`
	Goal        float64 `json:"goal"`
	Percent     float64 `json:"percent"`
}

// DefaultHairConfig is the fallback used when no configuration has ever been
// persisted, so the engine never blocks startup on a missing key.
func DefaultHairConfig() HairConfig {
	return HairConfig{
		Version: 1,
		Textures: []HairOption{
			{Value: "liso", Price: 100, Enabled: true},
			{Value: "ondulado", Price: 80, Enabled: true},
			{Value: "cacheado", Price: 60, Enabled: true},
		},
		Lengths: []HairOption{
			{Value: "30cm", Price: 50, Enabled: true},
			{Value: "45cm", Price: 120, Enabled: true},
			{Value: "60cm", Price: 250, Enabled: true},
		},
		Circumferences: []HairOption{
			{Value: "fino", Price: 30, Enabled: true},
			{Value: "medio", Price: 60, Enabled: true},
			{Value: "grosso", Price: 100, Enabled: true},
		},
		Conditions: []HairOption{
			{Value: "virgem", Price: 80, Enabled: true},
			{Value: "com quimica", Price: 20, Enabled: true},
		},
		Qualities: []HairOption{
			{Value: "alta", Price: 60, Enabled: true},
			{Value: "media", Price: 30, Enabled: true},
			{Value: "baixa", Price: 0, Enabled: true},
		},
		Colors: []HairOption{
			{Value: "natural escuro", Price: 0, Enabled: true},
			{Value: "natural claro", Price: 0, Enabled: true},
			{Value: "colorido", Price: 0, Enabled: true},
		},
		MaxPriceLimit: 0,
		MonthlyGoal:   3000,
		BlockMessage:  "Valor acima do limite permitido para compra.",
	}
}
