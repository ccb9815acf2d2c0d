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

// CreateOrder prices every line from the catalog and reserves stock
// immediately: an order is a hold, not an intent.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" || len(req.Lines) == 0 {
		return domain.Order{}, store.ErrInvalidInput
	}

	lines := make([]domain.OrderLine, 0, len(req.Lines))
	total := 0.0
	// Demand is checked cumulatively per product so duplicate lines cannot
	// slip past the stock check one at a time.
	reserved := make(map[string]float64)
	for _, line := range req.Lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			return domain.Order{}, store.ErrInvalidInput
		}
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return domain.Order{}, err
		}

		unit := line.Unit
		if unit == "" {
			unit = product.Unit
		}
		if !saleUnitAllowed(unit, product.Unit) {
			return domain.Order{}, store.ErrInvalidInput
		}
		normalizedQty := line.Quantity * domain.ConversionFactor(unit, product.Unit)
		if reserved[product.ID]+normalizedQty > product.Stock {
			available := product.Stock - reserved[product.ID]
			if available < 0 {
				available = 0
			}
			return domain.Order{}, fmt.Errorf("%w: %s has %.3f %s available", store.ErrInsufficientStock, product.Name, available, product.Unit)
		}
		reserved[product.ID] += normalizedQty

		lineTotal := domain.Round2(product.Price * normalizedQty)
		lines = append(lines, domain.OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Unit:      unit,
			UnitPrice: lineTotal / line.Quantity,
		})
		total += lineTotal
	}

	order := domain.Order{
		CustomerName: req.CustomerName,
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		DeliveryMode: strings.TrimSpace(req.DeliveryMode),
		Lines:        lines,
		Total:        domain.Round2(total),
		Status:       domain.OrderStatusPending,
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.adjustOrderStock(ctx, created.Lines, -1); err != nil {
		return domain.Order{}, err
	}
	return *created, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, status string) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx, status)
}

// UpdateOrderStatus drives the reconciliation lifecycle. Completing an order
// synthesizes its product-only sale atomically; cancelling a pending order
// releases the reserved stock. Completed and cancelled orders are terminal.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status string) (domain.Order, error) {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusCompleted, domain.OrderStatusCancelled:
	default:
		return domain.Order{}, store.ErrInvalidInput
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status == domain.OrderStatusCompleted || order.Status == domain.OrderStatusCancelled {
		return domain.Order{}, store.ErrInvalidInput
	}
	if status == order.Status {
		return *order, nil
	}

	switch status {
	case domain.OrderStatusCompleted:
		return s.completeOrder(ctx, order)
	case domain.OrderStatusCancelled:
		updated, err := s.repo.UpdateOrderStatus(ctx, id, status)
		if err != nil {
			return domain.Order{}, err
		}
		// Only a pending hold is released; a processing order's stock
		// state is considered settled.
		if order.Status == domain.OrderStatusPending {
			if err := s.adjustOrderStock(ctx, order.Lines, 1); err != nil {
				return domain.Order{}, err
			}
		}
		return *updated, nil
	default:
		updated, err := s.repo.UpdateOrderStatus(ctx, id, status)
		if err != nil {
			return domain.Order{}, err
		}
		return *updated, nil
	}
}

// completeOrder converts the order into a sale. Recording the sale needs an
// open cashier session, same as the counter path. Stock was already taken at
// creation, so completion moves no inventory. The customer is matched to an
// existing client by email or phone when possible.
func (s *Service) completeOrder(ctx context.Context, order *domain.Order) (domain.Order, error) {
	if _, err := s.repo.ActiveCashierSession(ctx); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("%w: no open cashier session", store.ErrSessionConflict)
		}
		return domain.Order{}, err
	}

	clientID := ""
	clientName := order.CustomerName
	client, err := s.repo.FindClientByContact(ctx, order.Email, order.Phone)
	switch {
	case err == nil:
		clientID = client.ID
		clientName = client.Name
	case errors.Is(err, store.ErrNotFound):
	default:
		return domain.Order{}, err
	}

	items := make([]domain.SaleItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, domain.SaleItem{
			Type:      domain.LineTypeProduct,
			RefID:     line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Unit:      line.Unit,
			UnitPrice: line.UnitPrice,
		})
	}

	sale := domain.Sale{
		CreatedAt:     time.Now().UTC(),
		ClientID:      clientID,
		ClientName:    clientName,
		Items:         items,
		Total:         order.Total,
		PaymentMethod: "order",
		CreatedBy:     operatorFromContext(ctx),
	}

	updated, _, err := s.repo.CompleteOrderWithSale(ctx, order.ID, sale)
	if err != nil {
		return domain.Order{}, err
	}
	return *updated, nil
}

// RemoveOrder deletes the record. A pending order still holds stock, so its
// reservation is released first; orders in any other status move nothing.
func (s *Service) RemoveOrder(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status == domain.OrderStatusPending {
		if err := s.adjustOrderStock(ctx, order.Lines, 1); err != nil {
			return err
		}
	}
	return s.repo.DeleteOrder(ctx, id)
}

func (s *Service) adjustOrderStock(ctx context.Context, lines []domain.OrderLine, direction float64) error {
	for _, line := range lines {
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		normalizedQty := line.Quantity * domain.ConversionFactor(line.Unit, product.Unit)
		if err := s.repo.AdjustStock(ctx, line.ProductID, direction*normalizedQty); err != nil {
			return err
		}
	}
	return nil
}
