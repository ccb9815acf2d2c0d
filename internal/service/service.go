package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"belezapos/backend/internal/cache"
	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// fallbackOperator is recorded on writes that reach the service without an
// authenticated actor, e.g. seeded maintenance jobs.
const fallbackOperator = "Sistema"

func operatorFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username
	}
	return fallbackOperator
}

type Service struct {
	repo               store.Repository
	commissionCache    cache.CommissionCache
	commissionCacheTTL time.Duration
}

func New(repo store.Repository, commissionCache cache.CommissionCache, commissionCacheTTL time.Duration) *Service {
	if commissionCache == nil {
		commissionCache = cache.NoopCommissionCache{}
	}
	if commissionCacheTTL <= 0 {
		commissionCacheTTL = 60 * time.Second
	}

	return &Service{
		repo:               repo,
		commissionCache:    commissionCache,
		commissionCacheTTL: commissionCacheTTL,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Price < 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	unit := req.Unit
	if unit == "" {
		unit = domain.UnitPiece
	}
	switch unit {
	case domain.UnitPiece, domain.UnitPieceAlt, domain.UnitKilogram, domain.UnitGram:
	default:
		return domain.Product{}, store.ErrInvalidInput
	}

	origin := req.Origin
	if origin == "" {
		origin = domain.OriginStore
	}
	if origin != domain.OriginStore && origin != domain.OriginHair {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:     req.Name,
		Category: req.Category,
		Price:    domain.Round2(req.Price),
		Unit:     unit,
		Stock:    req.Stock,
		Origin:   origin,
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Price = domain.Round2(*req.Price)
	}
	if req.Unit != nil {
		switch *req.Unit {
		case domain.UnitPiece, domain.UnitPieceAlt, domain.UnitKilogram, domain.UnitGram:
			updated.Unit = *req.Unit
		default:
			return domain.Product{}, store.ErrInvalidInput
		}
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Stock = *req.Stock
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx)
}

func (s *Service) CreateService(ctx context.Context, req domain.ServiceCreateRequest) (domain.Service, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Service{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 || req.DurationMinutes < 0 {
		return domain.Service{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateService(ctx, domain.Service{
		Name:            req.Name,
		Category:        strings.TrimSpace(req.Category),
		Price:           domain.Round2(req.Price),
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return domain.Service{}, err
	}
	return *created, nil
}

func (s *Service) UpdateService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Service{}, err
	}
	if svc.ID == "" || strings.TrimSpace(svc.Name) == "" || svc.Price < 0 {
		return domain.Service{}, store.ErrInvalidInput
	}
	svc.Name = strings.TrimSpace(svc.Name)
	svc.Price = domain.Round2(svc.Price)

	saved, err := s.repo.UpdateService(ctx, svc)
	if err != nil {
		return domain.Service{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteService(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteService(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	return s.repo.ListStaff(ctx)
}

func (s *Service) CreateStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.Staff, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Staff{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CommissionRate < 0 || req.CommissionRate > 100 {
		return domain.Staff{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateStaff(ctx, domain.Staff{
		Name:           req.Name,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		return domain.Staff{}, err
	}
	return *created, nil
}

func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.repo.ListClients(ctx)
}

func (s *Service) CreateClient(ctx context.Context, req domain.ClientCreateRequest) (domain.Client, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Client{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateClient(ctx, domain.Client{
		Name:  req.Name,
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return domain.Client{}, err
	}
	return *created, nil
}

// ClientLoyaltyPoints derives the balance from sale history on every call.
// One point per whole currency unit spent; nothing is persisted, so a sale
// can never disagree with the points it produced.
func (s *Service) ClientLoyaltyPoints(ctx context.Context, clientID string) (int, error) {
	if clientID == "" {
		return 0, store.ErrInvalidInput
	}
	if _, err := s.repo.GetClientByID(ctx, clientID); err != nil {
		return 0, err
	}

	sales, err := s.repo.ListSalesByClient(ctx, clientID)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, sale := range sales {
		total += sale.Total
	}
	return int(math.Floor(total)), nil
}

func (s *Service) OpenCashier(ctx context.Context, req domain.OpenCashierRequest) (domain.CashierSession, error) {
	if req.OpeningBalance < 0 {
		return domain.CashierSession{}, store.ErrInvalidInput
	}

	session, err := s.repo.OpenCashierSession(ctx, domain.CashierSession{
		OpenedBy:       operatorFromContext(ctx),
		OpeningBalance: domain.Round2(req.OpeningBalance),
	})
	if err != nil {
		return domain.CashierSession{}, err
	}
	return *session, nil
}

func (s *Service) CloseCashier(ctx context.Context, req domain.CloseCashierRequest) (domain.CashierSession, error) {
	if req.WithdrawAmount < 0 {
		return domain.CashierSession{}, store.ErrInvalidInput
	}

	session, err := s.repo.CloseCashierSession(ctx, operatorFromContext(ctx), domain.Round2(req.WithdrawAmount), time.Now().UTC())
	if err != nil {
		return domain.CashierSession{}, err
	}
	return *session, nil
}

func (s *Service) ActiveCashierSession(ctx context.Context) (domain.CashierSession, error) {
	session, err := s.repo.ActiveCashierSession(ctx)
	if err != nil {
		return domain.CashierSession{}, err
	}
	return *session, nil
}

func (s *Service) ListCashierSessions(ctx context.Context, limit int) ([]domain.CashierSession, error) {
	return s.repo.ListCashierSessions(ctx, limit)
}

func (s *Service) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, from, to)
}

func (s *Service) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.ClientName = strings.TrimSpace(appt.ClientName)
	if appt.ClientName == "" || len(appt.ServiceIDs) == 0 {
		return domain.Appointment{}, store.ErrInvalidInput
	}
	for _, serviceID := range appt.ServiceIDs {
		if _, err := s.repo.GetServiceByID(ctx, serviceID); err != nil {
			return domain.Appointment{}, err
		}
	}
	if appt.PrimaryStaffID != "" {
		if _, err := s.repo.GetStaffByID(ctx, appt.PrimaryStaffID); err != nil {
			return domain.Appointment{}, err
		}
	}
	if appt.ScheduledAt.IsZero() {
		appt.ScheduledAt = time.Now().UTC()
	}

	created, err := s.repo.CreateAppointment(ctx, appt)
	if err != nil {
		return domain.Appointment{}, err
	}
	return *created, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (domain.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	return *appt, nil
}

// DailyRevenue aggregates a single calendar day in UTC.
func (s *Service) DailyRevenue(ctx context.Context, date string) (domain.DailyRevenue, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domain.DailyRevenue{}, store.ErrInvalidInput
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	sales, err := s.repo.ListSales(ctx, from, to)
	if err != nil {
		return domain.DailyRevenue{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, from, to)
	if err != nil {
		return domain.DailyRevenue{}, err
	}

	revenue := domain.DailyRevenue{Date: date, Sales: len(sales)}
	for _, sale := range sales {
		revenue.Total += sale.Total
	}
	for _, expense := range expenses {
		revenue.Expenses += expense.Amount
	}
	revenue.Total = domain.Round2(revenue.Total)
	revenue.Expenses = domain.Round2(revenue.Expenses)
	revenue.Net = domain.Round2(revenue.Total - revenue.Expenses)
	return revenue, nil
}
