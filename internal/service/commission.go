package service

import (
	"context"
	"log"
	"time"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
)

const commissionCacheKeyPrefix = "commission:"

// CommissionSummary recomputes earnings from the immutable sale history and
// buckets them by the calendar period of each sale's timestamp. Weeks start
// on Sunday. The result is cached briefly; every write that changes the
// outcome invalidates the entry.
func (s *Service) CommissionSummary(ctx context.Context, staffID string) (domain.CommissionSummary, error) {
	if staffID == "" {
		return domain.CommissionSummary{}, store.ErrInvalidInput
	}

	cacheKey := commissionCacheKeyPrefix + staffID
	if cached, found, err := s.commissionCache.Get(ctx, cacheKey); err != nil {
		log.Printf("[service] WARN: commission cache read failed staff=%s: %v", staffID, err)
	} else if found {
		return *cached, nil
	}

	staff, err := s.repo.GetStaffByID(ctx, staffID)
	if err != nil {
		return domain.CommissionSummary{}, err
	}

	sales, err := s.repo.ListSaleItemsByStaff(ctx, staffID)
	if err != nil {
		return domain.CommissionSummary{}, err
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -int(dayStart.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	summary := domain.CommissionSummary{StaffID: staff.ID, StaffName: staff.Name}
	for _, sale := range sales {
		earned := 0.0
		for _, item := range sale.Items {
			if item.StaffID != staffID {
				continue
			}
			earned += item.Total() * staff.CommissionRate / 100
		}
		if earned == 0 {
			continue
		}

		summary.Lifetime += earned
		at := sale.CreatedAt.UTC()
		if !at.Before(dayStart) {
			summary.Today += earned
		}
		if !at.Before(weekStart) {
			summary.Week += earned
		}
		if !at.Before(monthStart) {
			summary.Month += earned
		}
		if !at.Before(yearStart) {
			summary.Year += earned
		}
	}

	payments, err := s.repo.ListStaffPayments(ctx, staffID)
	if err != nil {
		return domain.CommissionSummary{}, err
	}
	for _, payment := range payments {
		summary.Paid += payment.Amount
	}

	summary.Today = domain.Round2(summary.Today)
	summary.Week = domain.Round2(summary.Week)
	summary.Month = domain.Round2(summary.Month)
	summary.Year = domain.Round2(summary.Year)
	summary.Lifetime = domain.Round2(summary.Lifetime)
	summary.Paid = domain.Round2(summary.Paid)
	summary.Balance = domain.Round2(summary.Lifetime - summary.Paid)

	if err := s.commissionCache.Set(ctx, cacheKey, &summary, s.commissionCacheTTL); err != nil {
		log.Printf("[service] WARN: commission cache write failed staff=%s: %v", staffID, err)
	}
	return summary, nil
}

// RecordCommissionPayment registers the payout and its cash-flow expense as
// one atomic write. Balances may go negative; paying ahead of earnings is an
// administrative decision.
func (s *Service) RecordCommissionPayment(ctx context.Context, req domain.CommissionPaymentRequest) (domain.StaffPayment, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StaffPayment{}, err
	}
	if req.StaffID == "" || req.Amount <= 0 {
		return domain.StaffPayment{}, store.ErrInvalidInput
	}

	staff, err := s.repo.GetStaffByID(ctx, req.StaffID)
	if err != nil {
		return domain.StaffPayment{}, err
	}

	amount := domain.Round2(req.Amount)
	operator := operatorFromContext(ctx)
	payment := domain.StaffPayment{
		StaffID: staff.ID,
		Amount:  amount,
		Note:    req.Note,
	}
	expense := domain.Expense{
		Category:    domain.ExpenseCategoryCommission,
		Description: "Pagamento de comissão: " + staff.Name,
		Amount:      amount,
		CreatedBy:   operator,
	}

	created, err := s.repo.CreateStaffPaymentWithExpense(ctx, payment, expense)
	if err != nil {
		return domain.StaffPayment{}, err
	}

	if err := s.commissionCache.Invalidate(ctx, commissionCacheKeyPrefix+staff.ID); err != nil {
		log.Printf("[service] WARN: commission cache invalidate failed staff=%s: %v", staff.ID, err)
	}
	return *created, nil
}

func (s *Service) ListStaffPayments(ctx context.Context, staffID string) ([]domain.StaffPayment, error) {
	return s.repo.ListStaffPayments(ctx, staffID)
}

func (s *Service) invalidateCommissionFor(ctx context.Context, items []domain.SaleItem) {
	seen := make(map[string]struct{}, 4)
	for _, item := range items {
		if item.StaffID == "" {
			continue
		}
		if _, ok := seen[item.StaffID]; ok {
			continue
		}
		seen[item.StaffID] = struct{}{}
		if err := s.commissionCache.Invalidate(ctx, commissionCacheKeyPrefix+item.StaffID); err != nil {
			log.Printf("[service] WARN: commission cache invalidate failed staff=%s: %v", item.StaffID, err)
		}
	}
}
