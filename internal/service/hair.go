package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
	"belezapos/backend/internal/xid"
)

// hairConfig returns the stored configuration, falling back to the built-in
// defaults when none has been saved yet.
func (s *Service) hairConfig(ctx context.Context) (domain.HairConfig, error) {
	cfg, err := s.repo.GetHairConfig(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DefaultHairConfig(), nil
		}
		return domain.HairConfig{}, err
	}
	return *cfg, nil
}

func (s *Service) GetHairConfig(ctx context.Context) (domain.HairConfig, error) {
	return s.hairConfig(ctx)
}

func (s *Service) SaveHairConfig(ctx context.Context, cfg domain.HairConfig) (domain.HairConfig, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.HairConfig{}, err
	}
	if cfg.MaxPriceLimit < 0 || cfg.MonthlyGoal < 0 {
		return domain.HairConfig{}, store.ErrInvalidInput
	}
	for _, attr := range hairAttrs {
		for _, opt := range cfg.OptionsFor(attr) {
			if strings.TrimSpace(opt.Value) == "" || opt.Price < 0 {
				return domain.HairConfig{}, store.ErrInvalidInput
			}
		}
	}

	saved, err := s.repo.SaveHairConfig(ctx, cfg)
	if err != nil {
		return domain.HairConfig{}, err
	}
	return *saved, nil
}

var hairAttrs = []string{
	domain.HairAttrTexture,
	domain.HairAttrLength,
	domain.HairAttrCircumference,
	domain.HairAttrCondition,
	domain.HairAttrQuality,
	domain.HairAttrColor,
}

// EvaluateHairQuote prices a selection against the current configuration.
// A selected value that is missing or disabled falls back to the first
// enabled option of that attribute, so a stale client can never price
// against retired table entries. The evaluation carries the normalized
// selection so callers persist what was actually priced.
func (s *Service) EvaluateHairQuote(ctx context.Context, selection domain.HairSelection) (domain.HairQuoteEvaluation, error) {
	cfg, err := s.hairConfig(ctx)
	if err != nil {
		return domain.HairQuoteEvaluation{}, err
	}

	total := 0.0
	for _, attr := range hairAttrs {
		options := cfg.OptionsFor(attr)
		option, ok := resolveHairOption(options, selection.Value(attr))
		if !ok {
			continue
		}
		selection.SetValue(attr, option.Value)
		total += option.Price
	}
	total = domain.Round2(total)

	eval := domain.HairQuoteEvaluation{Selection: selection, Total: total}
	if cfg.MaxPriceLimit > 0 && total > cfg.MaxPriceLimit {
		eval.Blocked = true
		eval.BlockMessage = cfg.BlockMessage
		eval.ExcessAmount = domain.Round2(total - cfg.MaxPriceLimit)
	}
	return eval, nil
}

func resolveHairOption(options []domain.HairOption, value string) (domain.HairOption, bool) {
	for _, opt := range options {
		if opt.Enabled && opt.Value == value {
			return opt, true
		}
	}
	for _, opt := range options {
		if opt.Enabled {
			return opt, true
		}
	}
	return domain.HairOption{}, false
}

func (s *Service) CreateHairQuote(ctx context.Context, req domain.HairQuoteCreateRequest) (domain.HairQuote, domain.HairQuoteEvaluation, error) {
	if req.EvaluatorID == "" {
		return domain.HairQuote{}, domain.HairQuoteEvaluation{}, store.ErrInvalidInput
	}
	evaluator, err := s.repo.GetStaffByID(ctx, req.EvaluatorID)
	if err != nil {
		return domain.HairQuote{}, domain.HairQuoteEvaluation{}, err
	}

	eval, err := s.EvaluateHairQuote(ctx, req.Selection)
	if err != nil {
		return domain.HairQuote{}, domain.HairQuoteEvaluation{}, err
	}

	quote := domain.HairQuote{
		EvaluatorID:   evaluator.ID,
		EvaluatorName: evaluator.Name,
		Selection:     eval.Selection,
		Total:         eval.Total,
		Status:        domain.QuoteStatusQuoted,
	}
	created, err := s.repo.CreateHairQuote(ctx, quote)
	if err != nil {
		return domain.HairQuote{}, domain.HairQuoteEvaluation{}, err
	}
	return *created, eval, nil
}

func (s *Service) GetHairQuote(ctx context.Context, id string) (domain.HairQuote, error) {
	quote, err := s.repo.GetHairQuoteByID(ctx, id)
	if err != nil {
		return domain.HairQuote{}, err
	}
	return *quote, nil
}

func (s *Service) ListHairQuotes(ctx context.Context, evaluatorID string, status string) ([]domain.HairQuote, error) {
	return s.repo.ListHairQuotes(ctx, evaluatorID, status)
}

// PurchaseHairQuote turns a quote into a purchase. The quote must not exceed
// the configured price limit, the seller identity must be complete and all
// three photos present. The purchase, its approval code and the cash-flow
// expense commit atomically.
func (s *Service) PurchaseHairQuote(ctx context.Context, quoteID string, req domain.HairPurchaseRequest) (domain.HairQuote, error) {
	quote, err := s.repo.GetHairQuoteByID(ctx, quoteID)
	if err != nil {
		return domain.HairQuote{}, err
	}
	if quote.Status != domain.QuoteStatusQuoted {
		return domain.HairQuote{}, store.ErrInvalidInput
	}

	eval, err := s.EvaluateHairQuote(ctx, quote.Selection)
	if err != nil {
		return domain.HairQuote{}, err
	}
	if eval.Blocked {
		return domain.HairQuote{}, &HairPurchaseBlockedError{
			Message: eval.BlockMessage,
			Excess:  eval.ExcessAmount,
		}
	}

	seller := req.Seller
	seller.Name = strings.TrimSpace(seller.Name)
	seller.TaxID = strings.TrimSpace(seller.TaxID)
	seller.PayoutKey = strings.TrimSpace(seller.PayoutKey)
	seller.Region = strings.TrimSpace(seller.Region)
	seller.AgeBracket = strings.TrimSpace(seller.AgeBracket)
	if seller.Name == "" || seller.TaxID == "" || seller.PayoutKey == "" || seller.Region == "" || seller.AgeBracket == "" {
		return domain.HairQuote{}, store.ErrInvalidInput
	}
	if req.Photos.Front == "" || req.Photos.Side == "" || req.Photos.Back == "" {
		return domain.HairQuote{}, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	quote.Seller = &seller
	photos := req.Photos
	quote.Photos = &photos
	quote.ApprovalCode = xid.Code("HC", 8)
	quote.PurchasedAt = &now

	expense := domain.Expense{
		Category:    domain.ExpenseCategoryHairPurchase,
		Description: "Compra de cabelo: " + seller.Name,
		Amount:      quote.Total,
		CreatedBy:   operatorFromContext(ctx),
	}

	purchased, err := s.repo.PurchaseHairQuote(ctx, *quote, expense)
	if err != nil {
		return domain.HairQuote{}, err
	}
	return *purchased, nil
}

// ApproveHairQuote moves a purchased quote into stock, looked up by the
// approval code handed out at purchase time.
func (s *Service) ApproveHairQuote(ctx context.Context, approvalCode string) (domain.HairQuote, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.HairQuote{}, err
	}

	quote, err := s.repo.GetHairQuoteByApprovalCode(ctx, approvalCode)
	if err != nil {
		return domain.HairQuote{}, err
	}
	if quote.Status != domain.QuoteStatusPurchased {
		return domain.HairQuote{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateHairQuoteStatus(ctx, quote.ID, domain.QuoteStatusStock)
	if err != nil {
		return domain.HairQuote{}, err
	}
	return *updated, nil
}

func (s *Service) MarkHairQuoteSold(ctx context.Context, id string) (domain.HairQuote, error) {
	quote, err := s.repo.GetHairQuoteByID(ctx, id)
	if err != nil {
		return domain.HairQuote{}, err
	}
	if quote.Status != domain.QuoteStatusStock {
		return domain.HairQuote{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateHairQuoteStatus(ctx, id, domain.QuoteStatusSold)
	if err != nil {
		return domain.HairQuote{}, err
	}
	return *updated, nil
}

// HairGoalProgress sums the current month's approved purchases (status stock
// or sold) against the configured monthly goal, optionally restricted to one
// evaluator. Percent is clamped at 100.
func (s *Service) HairGoalProgress(ctx context.Context, evaluatorID string) (domain.HairGoalProgress, error) {
	cfg, err := s.hairConfig(ctx)
	if err != nil {
		return domain.HairGoalProgress{}, err
	}

	quotes, err := s.repo.ListHairQuotes(ctx, evaluatorID, "")
	if err != nil {
		return domain.HairGoalProgress{}, err
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	progress := domain.HairGoalProgress{
		EvaluatorID: evaluatorID,
		Month:       monthStart.Format("2006-01"),
		Goal:        cfg.MonthlyGoal,
	}
	for _, quote := range quotes {
		if quote.Status != domain.QuoteStatusStock && quote.Status != domain.QuoteStatusSold {
			continue
		}
		if quote.PurchasedAt == nil || quote.PurchasedAt.Before(monthStart) {
			continue
		}
		progress.Counted += quote.Total
	}
	progress.Counted = domain.Round2(progress.Counted)
	if progress.Goal > 0 {
		percent := progress.Counted / progress.Goal * 100
		if percent > 100 {
			percent = 100
		}
		progress.Percent = domain.Round2(percent)
	}
	return progress, nil
}

// HairPurchaseBlockedError reports a purchase attempt above the configured
// price limit, carrying the amount by which the quote exceeds it.
type HairPurchaseBlockedError struct {
	Message string
	Excess  float64
}

func (e *HairPurchaseBlockedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "hair purchase blocked by price limit"
}
