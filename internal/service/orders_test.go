package service

import (
	"errors"
	"testing"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
)

func TestCreateOrderReservesStock(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Email:        "fernanda@example.com",
		DeliveryMode: "pickup",
		Lines: []domain.OrderLine{
			{ProductID: "prod-pomada-01", Quantity: 3},
			{ProductID: "prod-tintura-01", Quantity: 500, Unit: domain.UnitGram},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %q", order.Status)
	}
	// 3 x 29.90 + 500g of 180/kg.
	if !almostEqual(order.Total, 3*29.90+90.00) {
		t.Fatalf("expected order total %.2f, got %.2f", 3*29.90+90.00, order.Total)
	}

	pomada, err := svc.GetProduct(ctx, "prod-pomada-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(pomada.Stock, 27) {
		t.Fatalf("expected pomada stock 27 after reservation, got %.2f", pomada.Stock)
	}
	tintura, err := svc.GetProduct(ctx, "prod-tintura-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(tintura.Stock, 2.0) {
		t.Fatalf("expected tintura stock 2.0kg after 500g reservation, got %.3f", tintura.Stock)
	}
}

func TestCreateOrderRejectsOverdraw(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-cera-01", Quantity: 99},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-cera-01", Quantity: 4},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	cancelled, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %q", cancelled.Status)
	}

	product, err := svc.GetProduct(ctx, "prod-cera-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 15) {
		t.Fatalf("expected restored stock 15, got %.2f", product.Stock)
	}

	// Cancelled is terminal.
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected terminal order to reject status change, got %v", err)
	}
}

func TestCancelProcessingOrderKeepsStockSettled(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-cera-01", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusProcessing); err != nil {
		t.Fatalf("move to processing failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	product, err := svc.GetProduct(ctx, "prod-cera-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 13) {
		t.Fatalf("expected stock to stay at 13 (no release past pending), got %.2f", product.Stock)
	}
}

func TestCreateOrderRejectsDuplicateLineOverdraw(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	// Each line fits the seeded stock of 15 on its own; together they do not.
	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-cera-01", Quantity: 10},
			{ProductID: "prod-cera-01", Quantity: 10},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock for cumulative demand, got %v", err)
	}

	product, err := svc.GetProduct(ctx, "prod-cera-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 15) {
		t.Fatalf("expected stock untouched at 15 after rejection, got %.2f", product.Stock)
	}
}

func TestCreateOrderReservesDuplicateLinesInFull(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-cera-01", Quantity: 7},
			{ProductID: "prod-cera-01", Quantity: 7},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	product, err := svc.GetProduct(ctx, "prod-cera-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 1) {
		t.Fatalf("expected stock 1 after reserving both lines, got %.2f", product.Stock)
	}

	// Cancellation hands back exactly what was reserved.
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	product, err = svc.GetProduct(ctx, "prod-cera-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 15) {
		t.Fatalf("expected stock back to 15 after cancellation, got %.2f", product.Stock)
	}
}

func TestCreateOrderRejectsUnitMismatch(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	// A count unit on a kg-priced product would convert 1:1 and misprice it.
	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-tintura-01", Quantity: 1, Unit: domain.UnitPiece},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for count unit on weight product, got %v", err)
	}

	_, err = svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-shampoo-01", Quantity: 100, Unit: domain.UnitGram},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for weight unit on piece product, got %v", err)
	}
}

func TestCompleteOrderRequiresOpenCashier(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "M. Silva",
		Email:        "maria@example.com",
		Lines: []domain.OrderLine{
			{ProductID: "prod-condic-01", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCompleted); !errors.Is(err, store.ErrSessionConflict) {
		t.Fatalf("expected session conflict completing without an open cashier, got %v", err)
	}

	// The order stays open and no sale was recorded.
	kept, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if kept.Status != domain.OrderStatusPending || kept.SaleID != "" {
		t.Fatalf("expected order untouched, got status %q sale %q", kept.Status, kept.SaleID)
	}
	sales, err := svc.repo.ListSalesByClient(ctx, "cli-maria")
	if err != nil {
		t.Fatalf("list client sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sale recorded, got %d", len(sales))
	}
}

func TestCompleteOrderSynthesizesSale(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	openCashier(t, svc, ctx)

	// Email matches the seeded client Maria Silva.
	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "M. Silva",
		Email:        "maria@example.com",
		Lines: []domain.OrderLine{
			{ProductID: "prod-condic-01", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	completed, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("complete order failed: %v", err)
	}
	if completed.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed status, got %q", completed.Status)
	}
	if completed.SaleID == "" {
		t.Fatalf("expected completed order linked to a sale")
	}

	// Completion moves no inventory; the hold was taken at creation.
	product, err := svc.GetProduct(ctx, "prod-condic-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 16) {
		t.Fatalf("expected stock unchanged at 16, got %.2f", product.Stock)
	}

	sales, err := svc.repo.ListSalesByClient(ctx, "cli-maria")
	if err != nil {
		t.Fatalf("list client sales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected the synthesized sale matched to the client by email, got %d sales", len(sales))
	}
	if !almostEqual(sales[0].Total, order.Total) {
		t.Fatalf("expected sale total %.2f, got %.2f", order.Total, sales[0].Total)
	}
	if sales[0].PaymentMethod != "order" {
		t.Fatalf("expected payment method order, got %q", sales[0].PaymentMethod)
	}
}

func TestRemoveOrderReleasesPendingHold(t *testing.T) {
	svc := newTestService()
	staffCtx := staffContext()
	adminCtx := adminContext()

	order, err := svc.CreateOrder(staffCtx, domain.OrderCreateRequest{
		CustomerName: "Fernanda Lima",
		Lines: []domain.OrderLine{
			{ProductID: "prod-shampoo-01", Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if err := svc.RemoveOrder(staffCtx, order.ID); err == nil {
		t.Fatalf("expected order removal to require admin role")
	}
	if err := svc.RemoveOrder(adminCtx, order.ID); err != nil {
		t.Fatalf("remove order failed: %v", err)
	}

	product, err := svc.GetProduct(adminCtx, "prod-shampoo-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !almostEqual(product.Stock, 24) {
		t.Fatalf("expected full stock back after removal, got %.2f", product.Stock)
	}
	if _, err := svc.GetOrder(adminCtx, order.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected order gone after removal, got %v", err)
	}
}
