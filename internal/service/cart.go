package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
)

// AddProductLine prices a product line in the requested sale unit and checks
// the cart's cumulative demand against committed stock. The line total is
// computed from the base price first and the per-unit price derived from it,
// so selling 1000 g of a kg-priced product costs exactly the kg price.
func (s *Service) AddProductLine(ctx context.Context, cart *domain.Cart, req domain.AddProductLineRequest) (domain.SaleItem, error) {
	if cart == nil || req.ProductID == "" || req.StaffID == "" || req.Quantity <= 0 {
		return domain.SaleItem{}, store.ErrInvalidInput
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return domain.SaleItem{}, err
	}

	saleUnit := req.Unit
	if saleUnit == "" {
		saleUnit = product.Unit
	}
	if !saleUnitAllowed(saleUnit, product.Unit) {
		return domain.SaleItem{}, store.ErrInvalidInput
	}

	staff, err := s.repo.GetStaffByID(ctx, req.StaffID)
	if err != nil {
		return domain.SaleItem{}, err
	}

	normalizedQty := req.Quantity * domain.ConversionFactor(saleUnit, product.Unit)
	alreadyInCart := cart.NormalizedProductQty(product.ID, product.Unit)
	if alreadyInCart+normalizedQty > product.Stock {
		available := product.Stock - alreadyInCart
		if available < 0 {
			available = 0
		}
		return domain.SaleItem{}, fmt.Errorf("%w: %s has %.3f %s available", store.ErrInsufficientStock, product.Name, available, product.Unit)
	}

	lineTotal := domain.Round2(product.Price * normalizedQty)
	unitPrice := lineTotal / req.Quantity

	item := domain.SaleItem{
		Type:      domain.LineTypeProduct,
		RefID:     product.ID,
		Name:      product.Name,
		Quantity:  req.Quantity,
		Unit:      saleUnit,
		UnitPrice: unitPrice,
		StaffID:   staff.ID,
		StaffName: staff.Name,
		Category:  product.Category,
		Origin:    product.Origin,
	}
	cart.Lines = append(cart.Lines, item)
	return item, nil
}

// AddServiceLine snapshots the catalog price unless the request overrides it.
func (s *Service) AddServiceLine(ctx context.Context, cart *domain.Cart, req domain.AddServiceLineRequest) (domain.SaleItem, error) {
	if cart == nil || req.ServiceID == "" || req.StaffID == "" {
		return domain.SaleItem{}, store.ErrInvalidInput
	}

	svc, err := s.repo.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		return domain.SaleItem{}, err
	}
	staff, err := s.repo.GetStaffByID(ctx, req.StaffID)
	if err != nil {
		return domain.SaleItem{}, err
	}

	price := svc.Price
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.SaleItem{}, store.ErrInvalidInput
		}
		price = domain.Round2(*req.Price)
	}

	item := domain.SaleItem{
		Type:      domain.LineTypeService,
		RefID:     svc.ID,
		Name:      svc.Name,
		Quantity:  1,
		UnitPrice: price,
		StaffID:   staff.ID,
		StaffName: staff.Name,
		Category:  svc.Category,
	}
	cart.Lines = append(cart.Lines, item)
	return item, nil
}

func (s *Service) RemoveCartLine(cart *domain.Cart, index int) error {
	if cart == nil || index < 0 || index >= len(cart.Lines) {
		return store.ErrInvalidInput
	}
	cart.Lines = append(cart.Lines[:index], cart.Lines[index+1:]...)
	return nil
}

// FinishSale commits the cart: an open cashier session is mandatory, stock is
// decremented per product line, and the sale record freezes every snapshot.
// A client is required except in the appointment quick-sale flow, where the
// appointment already identifies one.
func (s *Service) FinishSale(ctx context.Context, cart *domain.Cart, req domain.FinishSaleRequest) (domain.Sale, error) {
	if cart == nil || len(cart.Lines) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}
	if req.ClientID == "" && req.AppointmentID == "" {
		return domain.Sale{}, fmt.Errorf("%w: client required", store.ErrInvalidInput)
	}

	if _, err := s.repo.ActiveCashierSession(ctx); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Sale{}, fmt.Errorf("%w: no open cashier session", store.ErrSessionConflict)
		}
		return domain.Sale{}, err
	}

	clientName := ""
	if req.ClientID != "" {
		client, err := s.repo.GetClientByID(ctx, req.ClientID)
		if err != nil {
			return domain.Sale{}, err
		}
		clientName = client.Name
	}

	// Re-validate stock against the cart as a whole before any decrement.
	for _, productID := range cartProductIDs(cart) {
		product, err := s.repo.GetProductByID(ctx, productID)
		if err != nil {
			return domain.Sale{}, err
		}
		needed := cart.NormalizedProductQty(productID, product.Unit)
		if needed > product.Stock {
			return domain.Sale{}, fmt.Errorf("%w: %s has %.3f %s available", store.ErrInsufficientStock, product.Name, product.Stock, product.Unit)
		}
	}

	for _, productID := range cartProductIDs(cart) {
		product, err := s.repo.GetProductByID(ctx, productID)
		if err != nil {
			return domain.Sale{}, err
		}
		needed := cart.NormalizedProductQty(productID, product.Unit)
		if err := s.repo.AdjustStock(ctx, productID, -needed); err != nil {
			return domain.Sale{}, err
		}
	}

	sale := domain.Sale{
		CreatedAt:     time.Now().UTC(),
		ClientID:      req.ClientID,
		ClientName:    clientName,
		Items:         append([]domain.SaleItem(nil), cart.Lines...),
		Total:         cart.Total(),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		CreatedBy:     operatorFromContext(ctx),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateCommissionFor(ctx, created.Items)

	// The sale is committed at this point, so the cart is drained before the
	// appointment settle; a retry must not record it twice.
	cart.Lines = nil

	if req.AppointmentID != "" {
		if _, err := s.repo.SettleAppointment(ctx, req.AppointmentID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return *created, err
		}
	}
	return *created, nil
}

// QuickSaleFromAppointment seeds a cart with the appointment's services,
// attributed to its primary staff member, and settles it in one step.
func (s *Service) QuickSaleFromAppointment(ctx context.Context, appointmentID string, paymentMethod string) (domain.Sale, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return domain.Sale{}, err
	}
	if appt.Status == domain.AppointmentStatusSettled {
		return domain.Sale{}, store.ErrInvalidInput
	}

	cart := &domain.Cart{}
	for _, serviceID := range appt.ServiceIDs {
		_, err := s.AddServiceLine(ctx, cart, domain.AddServiceLineRequest{
			ServiceID: serviceID,
			StaffID:   appt.PrimaryStaffID,
		})
		if err != nil {
			return domain.Sale{}, err
		}
	}

	return s.FinishSale(ctx, cart, domain.FinishSaleRequest{
		ClientID:      appt.ClientID,
		PaymentMethod: paymentMethod,
		AppointmentID: appt.ID,
	})
}

func (s *Service) ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, from, to)
}

// saleUnitAllowed reports whether pricing in saleUnit is meaningful for a
// product stocked in productUnit. Count units sell 1:1 under any alias;
// weight units must be kg or g when the product is weight-priced.
func saleUnitAllowed(saleUnit, productUnit domain.Unit) bool {
	if saleUnit == productUnit || domain.ConversionFactor(saleUnit, productUnit) != 1 {
		return true
	}
	weightProduct := productUnit == domain.UnitKilogram || productUnit == domain.UnitGram
	weightSale := saleUnit == domain.UnitKilogram || saleUnit == domain.UnitGram
	return weightProduct == weightSale
}

func cartProductIDs(cart *domain.Cart) []string {
	seen := make(map[string]struct{}, len(cart.Lines))
	ids := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		if line.Type != domain.LineTypeProduct {
			continue
		}
		if _, ok := seen[line.RefID]; ok {
			continue
		}
		seen[line.RefID] = struct{}{}
		ids = append(ids, line.RefID)
	}
	return ids
}
