package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"belezapos/backend/internal/cache"
	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
	"belezapos/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopCommissionCache{}, 5*time.Second)
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "admin",
		Role:     "admin",
	})
}

func staffContext() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "balcao",
		Role:     "staff",
	})
}

func openCashier(t *testing.T, svc *Service, ctx context.Context) domain.CashierSession {
	t.Helper()
	session, err := svc.OpenCashier(ctx, domain.OpenCashierRequest{OpeningBalance: 200})
	if err != nil {
		t.Fatalf("open cashier failed: %v", err)
	}
	return session
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestFinishSaleRequiresOpenCashier(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	cart := &domain.Cart{}
	if _, err := svc.AddProductLine(ctx, cart, domain.AddProductLineRequest{
		ProductID: "prod-shampoo-01",
		StaffID:   "staff-ana",
		Quantity:  1,
		Unit:      domain.UnitPiece,
	}); err != nil {
		t.Fatalf("add product line failed: %v", err)
	}

	_, err := svc.FinishSale(ctx, cart, domain.FinishSaleRequest{
		ClientID:      "cli-maria",
		PaymentMethod: "cash",
	})
	if !errors.Is(err, store.ErrSessionConflict) {
		t.Fatalf("expected session conflict without open cashier, got %v", err)
	}
}

func TestWeightConversionPricing(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	// 250g of a product priced per kilogram.
	cart := &domain.Cart{}
	item, err := svc.AddProductLine(ctx, cart, domain.AddProductLineRequest{
		ProductID: "prod-tintura-01",
		StaffID:   "staff-carla",
		Quantity:  250,
		Unit:      domain.UnitGram,
	})
	if err != nil {
		t.Fatalf("add gram line failed: %v", err)
	}
	if !almostEqual(item.Total(), 45.00) {
		t.Fatalf("expected 250g of a 180/kg product to cost 45.00, got %.4f", item.Total())
	}

	// 1000g must cost exactly the per-kilogram price.
	cart = &domain.Cart{}
	item, err = svc.AddProductLine(ctx, cart, domain.AddProductLineRequest{
		ProductID: "prod-tintura-01",
		StaffID:   "staff-carla",
		Quantity:  1000,
		Unit:      domain.UnitGram,
	})
	if err != nil {
		t.Fatalf("add 1000g line failed: %v", err)
	}
	if !almostEqual(item.Total(), 180.00) {
		t.Fatalf("expected 1000g to cost exactly 180.00, got %.4f", item.Total())
	}
}

func TestCartRejectsCumulativeOverdraw(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	// Seeded stock for the hair extension product is 1.2kg.
	cart := &domain.Cart{}
	if _, err := svc.AddProductLine(ctx, cart, domain.AddProductLineRequest{
		ProductID: "prod-mecha-01",
		StaffID:   "staff-ana",
		Quantity:  800,
		Unit:      domain.UnitGram,
	}); err != nil {
		t.Fatalf("first line should fit in stock: %v", err)
	}

	_, err := svc.AddProductLine(ctx, cart, domain.AddProductLineRequest{
		ProductID: "prod-mecha-01",
		StaffID:   "staff-ana",
		Quantity:  500,
		Unit:      domain.UnitGram,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock for cumulative 1.3kg against 1.2kg, got %v", err)
	}
}

func TestCartRejectsUnitMismatch(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	cart := &domain.Cart{}
	_, err := svc.AddProductLine(ctx, cart, domain.AddProductLineRequest{
		ProductID: "prod-shampoo-01",
		StaffID:   "staff-ana",
		Quantity:  100,
		Unit:      domain.UnitGram,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for weight unit on a piece product, got %v", err)
	}
}

func TestFinishSaleDecrementsStockAndTotals(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	openCashier(t, svc, ctx)

	cart := &domain.Cart{}
	if _, err := svc.AddProductLine(ctx, cart, domain.AddProductLineRequest{
		ProductID: "prod-shampoo-01",
		StaffID:   "staff-bruno",
		Quantity:  2,
		Unit:      domain.UnitPiece,
	}); err != nil {
		t.Fatalf("add product line failed: %v", err)
	}
	if _, err := svc.AddServiceLine(ctx, cart, domain.AddServiceLineRequest{
		ServiceID: "serv-corte-01",
		StaffID:   "staff-ana",
	}); err != nil {
		t.Fatalf("add service line failed: %v", err)
	}

	sale, err := svc.FinishSale(ctx, cart, domain.FinishSaleRequest{
		ClientID:      "cli-maria",
		PaymentMethod: "pix",
	})
	if err != nil {
		t.Fatalf("finish sale failed: %v", err)
	}
	if !almostEqual(sale.Total, 2*38.90+80.00) {
		t.Fatalf("expected sale total %.2f, got %.2f", 2*38.90+80.00, sale.Total)
	}
	if sale.ClientName != "Maria Silva" {
		t.Fatalf("expected resolved client name, got %q", sale.ClientName)
	}
	if sale.CreatedBy != "balcao" {
		t.Fatalf("expected sale recorded by operator, got %q", sale.CreatedBy)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected cart cleared after sale")
	}

	product, err := svc.GetProduct(ctx, "prod-shampoo-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 22) {
		t.Fatalf("expected stock 22 after selling 2 of 24, got %.2f", product.Stock)
	}
}

func TestCashierSessionSingleton(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	openCashier(t, svc, ctx)

	_, err := svc.OpenCashier(ctx, domain.OpenCashierRequest{OpeningBalance: 100})
	if !errors.Is(err, store.ErrSessionConflict) {
		t.Fatalf("expected conflict on second open, got %v", err)
	}

	closed, err := svc.CloseCashier(ctx, domain.CloseCashierRequest{WithdrawAmount: 150})
	if err != nil {
		t.Fatalf("close cashier failed: %v", err)
	}
	if closed.Status != domain.SessionStatusClosed || closed.ClosedAt == nil {
		t.Fatalf("expected closed session with timestamp")
	}
	if !almostEqual(closed.WithdrawnAmount, 150) {
		t.Fatalf("expected withdrawn amount recorded, got %.2f", closed.WithdrawnAmount)
	}

	if _, err := svc.CloseCashier(ctx, domain.CloseCashierRequest{}); err == nil {
		t.Fatalf("expected second close to fail")
	}
}

func TestCommissionLifecycle(t *testing.T) {
	svc := newTestService()
	staffCtx := staffContext()
	adminCtx := adminContext()
	openCashier(t, svc, staffCtx)

	price := 200.0
	cart := &domain.Cart{}
	if _, err := svc.AddServiceLine(staffCtx, cart, domain.AddServiceLineRequest{
		ServiceID: "serv-corte-01",
		StaffID:   "staff-ana",
		Price:     &price,
	}); err != nil {
		t.Fatalf("add service line failed: %v", err)
	}
	if _, err := svc.FinishSale(staffCtx, cart, domain.FinishSaleRequest{
		ClientID:      "cli-lucia",
		PaymentMethod: "cash",
	}); err != nil {
		t.Fatalf("finish sale failed: %v", err)
	}

	// Ana Paula earns 10%.
	summary, err := svc.CommissionSummary(staffCtx, "staff-ana")
	if err != nil {
		t.Fatalf("commission summary failed: %v", err)
	}
	if !almostEqual(summary.Today, 20) || !almostEqual(summary.Lifetime, 20) {
		t.Fatalf("expected 20.00 commission today and lifetime, got %.2f / %.2f", summary.Today, summary.Lifetime)
	}

	if _, err := svc.RecordCommissionPayment(staffCtx, domain.CommissionPaymentRequest{
		StaffID: "staff-ana",
		Amount:  50,
	}); err == nil {
		t.Fatalf("expected commission payment to require admin role")
	}

	payment, err := svc.RecordCommissionPayment(adminCtx, domain.CommissionPaymentRequest{
		StaffID: "staff-ana",
		Amount:  50,
		Note:    "adiantamento",
	})
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}
	if !almostEqual(payment.Amount, 50) {
		t.Fatalf("expected payment amount 50, got %.2f", payment.Amount)
	}

	summary, err = svc.CommissionSummary(adminCtx, "staff-ana")
	if err != nil {
		t.Fatalf("commission summary failed: %v", err)
	}
	if !almostEqual(summary.Paid, 50) {
		t.Fatalf("expected paid 50, got %.2f", summary.Paid)
	}
	if !almostEqual(summary.Balance, -30) {
		t.Fatalf("expected negative balance -30 after overpayment, got %.2f", summary.Balance)
	}

	// The payment must surface in expenses as a cash outflow.
	expenses, err := svc.ListExpenses(adminCtx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	found := false
	for _, expense := range expenses {
		if expense.Category == domain.ExpenseCategoryCommission && almostEqual(expense.Amount, 50) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected commission payment expense to be recorded")
	}
}

func TestClientLoyaltyPointsDerived(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	openCashier(t, svc, ctx)

	points, err := svc.ClientLoyaltyPoints(ctx, "cli-joao")
	if err != nil {
		t.Fatalf("loyalty points failed: %v", err)
	}
	if points != 0 {
		t.Fatalf("expected zero points before any sale, got %d", points)
	}

	cart := &domain.Cart{}
	if _, err := svc.AddServiceLine(ctx, cart, domain.AddServiceLineRequest{
		ServiceID: "serv-corte-02",
		StaffID:   "staff-bruno",
	}); err != nil {
		t.Fatalf("add service line failed: %v", err)
	}
	if _, err := svc.FinishSale(ctx, cart, domain.FinishSaleRequest{
		ClientID:      "cli-joao",
		PaymentMethod: "cash",
	}); err != nil {
		t.Fatalf("finish sale failed: %v", err)
	}

	points, err = svc.ClientLoyaltyPoints(ctx, "cli-joao")
	if err != nil {
		t.Fatalf("loyalty points failed: %v", err)
	}
	if points != 45 {
		t.Fatalf("expected 45 points from a 45.00 sale, got %d", points)
	}
}

func TestQuickSaleFromAppointmentSettlesIt(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	openCashier(t, svc, ctx)

	sale, err := svc.QuickSaleFromAppointment(ctx, "appt-001", "card")
	if err != nil {
		t.Fatalf("quick sale failed: %v", err)
	}
	// Corte Feminino 80 + Escova Progressiva 250.
	if !almostEqual(sale.Total, 330) {
		t.Fatalf("expected appointment sale total 330, got %.2f", sale.Total)
	}
	if sale.ClientID != "cli-maria" {
		t.Fatalf("expected sale bound to the appointment client, got %q", sale.ClientID)
	}

	appt, err := svc.GetAppointment(ctx, "appt-001")
	if err != nil {
		t.Fatalf("get appointment failed: %v", err)
	}
	if appt.Status != domain.AppointmentStatusSettled {
		t.Fatalf("expected settled appointment, got %q", appt.Status)
	}

	if _, err := svc.QuickSaleFromAppointment(ctx, "appt-001", "card"); err == nil {
		t.Fatalf("expected second quick sale on a settled appointment to fail")
	}
}

func TestDailyRevenueNetsExpenses(t *testing.T) {
	svc := newTestService()
	staffCtx := staffContext()
	adminCtx := adminContext()
	openCashier(t, svc, staffCtx)

	cart := &domain.Cart{}
	if _, err := svc.AddProductLine(staffCtx, cart, domain.AddProductLineRequest{
		ProductID: "prod-cera-01",
		StaffID:   "staff-carla",
		Quantity:  2,
		Unit:      domain.UnitPiece,
	}); err != nil {
		t.Fatalf("add product line failed: %v", err)
	}
	if _, err := svc.FinishSale(staffCtx, cart, domain.FinishSaleRequest{
		ClientID:      "cli-lucia",
		PaymentMethod: "cash",
	}); err != nil {
		t.Fatalf("finish sale failed: %v", err)
	}
	if _, err := svc.RecordCommissionPayment(adminCtx, domain.CommissionPaymentRequest{
		StaffID: "staff-carla",
		Amount:  10,
	}); err != nil {
		t.Fatalf("record payment failed: %v", err)
	}

	revenue, err := svc.DailyRevenue(adminCtx, time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("daily revenue failed: %v", err)
	}
	if revenue.Sales != 1 {
		t.Fatalf("expected one sale, got %d", revenue.Sales)
	}
	if !almostEqual(revenue.Total, 50) {
		t.Fatalf("expected gross 50.00, got %.2f", revenue.Total)
	}
	if !almostEqual(revenue.Expenses, 10) {
		t.Fatalf("expected expenses 10.00, got %.2f", revenue.Expenses)
	}
	if !almostEqual(revenue.Net, 40) {
		t.Fatalf("expected net 40.00, got %.2f", revenue.Net)
	}
}

func TestProductCatalogAdminGate(t *testing.T) {
	svc := newTestService()
	staffCtx := staffContext()
	adminCtx := adminContext()

	if _, err := svc.CreateProduct(staffCtx, domain.ProductCreateRequest{
		Name:  "Óleo Capilar",
		Price: 55,
		Unit:  domain.UnitPiece,
		Stock: 10,
	}); err == nil {
		t.Fatalf("expected catalog write to require admin role")
	}

	product, err := svc.CreateProduct(adminCtx, domain.ProductCreateRequest{
		Name:     "Óleo Capilar",
		Category: "tratamento",
		Price:    55,
		Unit:     domain.UnitPiece,
		Stock:    10,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	newPrice := 59.90
	updated, err := svc.UpdateProduct(adminCtx, product.ID, domain.ProductUpdateRequest{Price: &newPrice})
	if err != nil {
		t.Fatalf("update product failed: %v", err)
	}
	if !almostEqual(updated.Price, 59.90) {
		t.Fatalf("expected updated price, got %.2f", updated.Price)
	}

	if err := svc.DeleteProduct(adminCtx, product.ID); err != nil {
		t.Fatalf("delete product failed: %v", err)
	}
	if _, err := svc.GetProduct(adminCtx, product.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

// settleFailRepo simulates an appointment backend failing after the sale has
// already been committed.
type settleFailRepo struct {
	store.Repository
}

func (r settleFailRepo) SettleAppointment(_ context.Context, _ string) (*domain.Appointment, error) {
	return nil, fmt.Errorf("appointment backend unavailable")
}

func TestFinishSaleDrainsCartWhenSettleFails(t *testing.T) {
	svc := New(settleFailRepo{memory.NewSeeded()}, cache.NoopCommissionCache{}, 5*time.Second)
	ctx := staffContext()
	openCashier(t, svc, ctx)

	cart := &domain.Cart{}
	if _, err := svc.AddServiceLine(ctx, cart, domain.AddServiceLineRequest{
		ServiceID: "serv-corte-01",
		StaffID:   "staff-ana",
	}); err != nil {
		t.Fatalf("add service line failed: %v", err)
	}

	sale, err := svc.FinishSale(ctx, cart, domain.FinishSaleRequest{
		ClientID:      "cli-maria",
		PaymentMethod: "pix",
		AppointmentID: "appt-001",
	})
	if err == nil {
		t.Fatalf("expected the settle failure to surface")
	}
	if sale.ID == "" {
		t.Fatalf("expected the committed sale to be returned alongside the error")
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected cart drained after commit, got %d lines", len(cart.Lines))
	}

	// Retrying the drained cart must not record the sale twice.
	if _, err := svc.FinishSale(ctx, cart, domain.FinishSaleRequest{
		ClientID:      "cli-maria",
		PaymentMethod: "pix",
		AppointmentID: "appt-001",
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input on empty cart retry, got %v", err)
	}
	sales, err := svc.ListSales(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected exactly one recorded sale, got %d", len(sales))
	}
}
