package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
)

func TestAdjustStockFloorsAtZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if err := s.AdjustStock(ctx, "prod-cera-01", -999); err != nil {
		t.Fatalf("adjust stock failed: %v", err)
	}
	product, err := s.GetProductByID(ctx, "prod-cera-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 0 {
		t.Fatalf("expected stock floored at zero, got %.2f", product.Stock)
	}
}

func TestFindClientByContact(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	client, err := s.FindClientByContact(ctx, "maria@example.com", "")
	if err != nil {
		t.Fatalf("find by email failed: %v", err)
	}
	if client.ID != "cli-maria" {
		t.Fatalf("expected cli-maria, got %s", client.ID)
	}

	client, err = s.FindClientByContact(ctx, "", "11987650003")
	if err != nil {
		t.Fatalf("find by phone failed: %v", err)
	}
	if client.ID != "cli-lucia" {
		t.Fatalf("expected cli-lucia, got %s", client.ID)
	}

	if _, err := s.FindClientByContact(ctx, "nobody@example.com", "000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCashierSessionHistoryLimit(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.OpenCashierSession(ctx, domain.CashierSession{
			OpenedBy:       "admin",
			OpeningBalance: 100,
		}); err != nil {
			t.Fatalf("open session failed: %v", err)
		}
		if _, err := s.CloseCashierSession(ctx, "admin", 0, time.Now().UTC()); err != nil {
			t.Fatalf("close session failed: %v", err)
		}
	}

	sessions, err := s.ListCashierSessions(ctx, 2)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions with limit, got %d", len(sessions))
	}
}

func TestSaveHairConfigBumpsVersion(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	first, err := s.SaveHairConfig(ctx, domain.DefaultHairConfig())
	if err != nil {
		t.Fatalf("save config failed: %v", err)
	}
	second, err := s.SaveHairConfig(ctx, *first)
	if err != nil {
		t.Fatalf("save config failed: %v", err)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("expected version bump from %d, got %d", first.Version, second.Version)
	}

	stored, err := s.GetHairConfig(ctx)
	if err != nil {
		t.Fatalf("get config failed: %v", err)
	}
	if stored.Version != second.Version {
		t.Fatalf("expected latest version %d, got %d", second.Version, stored.Version)
	}
}

func TestListSaleItemsByStaff(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		Items: []domain.SaleItem{
			{Type: domain.LineTypeService, RefID: "serv-corte-01", Name: "Corte Feminino", Quantity: 1, UnitPrice: 80, StaffID: "staff-ana"},
			{Type: domain.LineTypeService, RefID: "serv-manic-01", Name: "Manicure", Quantity: 1, UnitPrice: 35, StaffID: "staff-carla"},
		},
		Total:         115,
		PaymentMethod: "cash",
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	sales, err := s.ListSaleItemsByStaff(ctx, "staff-ana")
	if err != nil {
		t.Fatalf("list by staff failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale touching staff-ana, got %d", len(sales))
	}

	sales, err = s.ListSaleItemsByStaff(ctx, "staff-bruno")
	if err != nil {
		t.Fatalf("list by staff failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales for staff-bruno, got %d", len(sales))
	}
}
