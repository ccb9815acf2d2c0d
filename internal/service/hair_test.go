package service

import (
	"errors"
	"testing"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
)

func fullSelection() domain.HairSelection {
	return domain.HairSelection{
		Texture:       "liso",
		Length:        "60cm",
		Circumference: "grosso",
		Condition:     "virgem",
		Quality:       "alta",
		Color:         "natural escuro",
	}
}

func fullSeller() domain.HairSeller {
	return domain.HairSeller{
		Name:       "Joana Souza",
		TaxID:      "123.456.789-00",
		PayoutKey:  "joana@example.com",
		Region:     "interior",
		AgeBracket: "25-34",
	}
}

func fullPhotos() domain.HairPhotos {
	return domain.HairPhotos{Front: "ph-front", Side: "ph-side", Back: "ph-back"}
}

func TestEvaluateSumsConfiguredPrices(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	eval, err := svc.EvaluateHairQuote(ctx, fullSelection())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	// liso 100 + 60cm 250 + grosso 100 + virgem 80 + alta 60 + color 0.
	if !almostEqual(eval.Total, 590) {
		t.Fatalf("expected total 590, got %.2f", eval.Total)
	}
	if eval.Blocked {
		t.Fatalf("expected no block with no configured limit")
	}
}

func TestEvaluateFallsBackToFirstEnabledOption(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	adminCtx := adminContext()

	cfg, err := svc.GetHairConfig(adminCtx)
	if err != nil {
		t.Fatalf("get config failed: %v", err)
	}
	cfg.Textures[0].Enabled = false
	if _, err := svc.SaveHairConfig(adminCtx, cfg); err != nil {
		t.Fatalf("save config failed: %v", err)
	}

	selection := fullSelection()
	selection.Texture = "liso" // now disabled
	eval, err := svc.EvaluateHairQuote(ctx, selection)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if eval.Selection.Texture != "ondulado" {
		t.Fatalf("expected fallback to first enabled texture, got %q", eval.Selection.Texture)
	}
	// ondulado 80 replaces liso 100.
	if !almostEqual(eval.Total, 570) {
		t.Fatalf("expected total 570 after fallback, got %.2f", eval.Total)
	}
}

func TestQuoteBlockedAbovePriceLimit(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	adminCtx := adminContext()

	cfg, err := svc.GetHairConfig(adminCtx)
	if err != nil {
		t.Fatalf("get config failed: %v", err)
	}
	cfg.MaxPriceLimit = 500
	if _, err := svc.SaveHairConfig(adminCtx, cfg); err != nil {
		t.Fatalf("save config failed: %v", err)
	}

	eval, err := svc.EvaluateHairQuote(ctx, fullSelection())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !eval.Blocked {
		t.Fatalf("expected evaluation blocked above the limit")
	}
	if !almostEqual(eval.ExcessAmount, 90) {
		t.Fatalf("expected excess 90 over a 500 limit, got %.2f", eval.ExcessAmount)
	}
	if eval.BlockMessage == "" {
		t.Fatalf("expected configured block message")
	}

	quote, _, err := svc.CreateHairQuote(ctx, domain.HairQuoteCreateRequest{
		EvaluatorID: "staff-carla",
		Selection:   fullSelection(),
	})
	if err != nil {
		t.Fatalf("create quote failed: %v", err)
	}

	_, err = svc.PurchaseHairQuote(ctx, quote.ID, domain.HairPurchaseRequest{
		Seller: fullSeller(),
		Photos: fullPhotos(),
	})
	var blocked *HairPurchaseBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected purchase blocked error, got %v", err)
	}
	if !almostEqual(blocked.Excess, 90) {
		t.Fatalf("expected blocked excess 90, got %.2f", blocked.Excess)
	}
}

func TestPurchaseRequiresSellerAndPhotos(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	quote, _, err := svc.CreateHairQuote(ctx, domain.HairQuoteCreateRequest{
		EvaluatorID: "staff-ana",
		Selection:   fullSelection(),
	})
	if err != nil {
		t.Fatalf("create quote failed: %v", err)
	}

	seller := fullSeller()
	seller.TaxID = "  "
	if _, err := svc.PurchaseHairQuote(ctx, quote.ID, domain.HairPurchaseRequest{
		Seller: seller,
		Photos: fullPhotos(),
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected incomplete seller rejected, got %v", err)
	}

	photos := fullPhotos()
	photos.Back = ""
	if _, err := svc.PurchaseHairQuote(ctx, quote.ID, domain.HairPurchaseRequest{
		Seller: fullSeller(),
		Photos: photos,
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected missing photo rejected, got %v", err)
	}
}

func TestHairQuoteLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	adminCtx := adminContext()

	quote, eval, err := svc.CreateHairQuote(ctx, domain.HairQuoteCreateRequest{
		EvaluatorID: "staff-ana",
		Selection:   fullSelection(),
	})
	if err != nil {
		t.Fatalf("create quote failed: %v", err)
	}
	if quote.Status != domain.QuoteStatusQuoted {
		t.Fatalf("expected quoted status, got %q", quote.Status)
	}
	if !almostEqual(quote.Total, eval.Total) {
		t.Fatalf("expected persisted total to match evaluation")
	}

	purchased, err := svc.PurchaseHairQuote(ctx, quote.ID, domain.HairPurchaseRequest{
		Seller: fullSeller(),
		Photos: fullPhotos(),
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if purchased.Status != domain.QuoteStatusPurchased {
		t.Fatalf("expected purchased status, got %q", purchased.Status)
	}
	if purchased.ApprovalCode == "" || purchased.PurchasedAt == nil {
		t.Fatalf("expected approval code and purchase timestamp")
	}

	// The purchase must register a cash-flow expense for the quoted total.
	expenses, err := svc.ListExpenses(adminCtx, quote.CreatedAt.AddDate(0, 0, -1), quote.CreatedAt.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	found := false
	for _, expense := range expenses {
		if expense.Category == domain.ExpenseCategoryHairPurchase && almostEqual(expense.Amount, quote.Total) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hair purchase expense recorded")
	}

	// Re-purchasing is invalid.
	if _, err := svc.PurchaseHairQuote(ctx, quote.ID, domain.HairPurchaseRequest{
		Seller: fullSeller(),
		Photos: fullPhotos(),
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected re-purchase rejected, got %v", err)
	}

	// Approval is admin-only and keyed by the code, not the ID.
	if _, err := svc.ApproveHairQuote(ctx, purchased.ApprovalCode); err == nil {
		t.Fatalf("expected approval to require admin role")
	}
	inStock, err := svc.ApproveHairQuote(adminCtx, purchased.ApprovalCode)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if inStock.Status != domain.QuoteStatusStock {
		t.Fatalf("expected stock status, got %q", inStock.Status)
	}

	sold, err := svc.MarkHairQuoteSold(ctx, quote.ID)
	if err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if sold.Status != domain.QuoteStatusSold {
		t.Fatalf("expected sold status, got %q", sold.Status)
	}
}

func TestHairGoalProgressCountsApprovedStock(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	adminCtx := adminContext()

	progress, err := svc.HairGoalProgress(ctx, "staff-ana")
	if err != nil {
		t.Fatalf("goal progress failed: %v", err)
	}
	if !almostEqual(progress.Counted, 0) {
		t.Fatalf("expected nothing counted before purchases, got %.2f", progress.Counted)
	}

	quote, _, err := svc.CreateHairQuote(ctx, domain.HairQuoteCreateRequest{
		EvaluatorID: "staff-ana",
		Selection:   fullSelection(),
	})
	if err != nil {
		t.Fatalf("create quote failed: %v", err)
	}
	purchased, err := svc.PurchaseHairQuote(ctx, quote.ID, domain.HairPurchaseRequest{
		Seller: fullSeller(),
		Photos: fullPhotos(),
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	// Purchased but not yet approved into stock does not count.
	progress, err = svc.HairGoalProgress(ctx, "staff-ana")
	if err != nil {
		t.Fatalf("goal progress failed: %v", err)
	}
	if !almostEqual(progress.Counted, 0) {
		t.Fatalf("expected purchased-only quote excluded, got %.2f", progress.Counted)
	}

	if _, err := svc.ApproveHairQuote(adminCtx, purchased.ApprovalCode); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	// A second quote left at quoted must not count either.
	if _, _, err := svc.CreateHairQuote(ctx, domain.HairQuoteCreateRequest{
		EvaluatorID: "staff-ana",
		Selection:   fullSelection(),
	}); err != nil {
		t.Fatalf("create quote failed: %v", err)
	}

	progress, err = svc.HairGoalProgress(ctx, "staff-ana")
	if err != nil {
		t.Fatalf("goal progress failed: %v", err)
	}
	if !almostEqual(progress.Counted, quote.Total) {
		t.Fatalf("expected counted %.2f, got %.2f", quote.Total, progress.Counted)
	}
	if !almostEqual(progress.Goal, 3000) {
		t.Fatalf("expected default goal 3000, got %.2f", progress.Goal)
	}
	// 590 of 3000.
	if !almostEqual(progress.Percent, 19.67) {
		t.Fatalf("expected percent 19.67, got %.2f", progress.Percent)
	}
}
