package store

import (
	"context"
	"errors"
	"time"

	"belezapos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSessionConflict   = errors.New("cashier session conflict")
)

// Repository is the aggregate-per-collection persistence surface. Each
// collection has exactly one writing component in the service layer; methods
// that pair two logically-coupled writes (payment+expense, purchase+expense,
// completion+sale) are single commands so the pair commits or fails as one.
type Repository interface {
	// Catalog.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListServices(ctx context.Context) ([]domain.Service, error)
	GetServiceByID(ctx context.Context, id string) (*domain.Service, error)
	CreateService(ctx context.Context, svc domain.Service) (*domain.Service, error)
	UpdateService(ctx context.Context, svc domain.Service) (*domain.Service, error)
	DeleteService(ctx context.Context, id string) error

	// Inventory. AdjustStock applies a signed delta to a product's on-hand
	// quantity in its base unit; negative results are floored at zero.
	AdjustStock(ctx context.Context, productID string, delta float64) error

	// Staff and clients.
	ListStaff(ctx context.Context) ([]domain.Staff, error)
	GetStaffByID(ctx context.Context, id string) (*domain.Staff, error)
	CreateStaff(ctx context.Context, staff domain.Staff) (*domain.Staff, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	GetClientByID(ctx context.Context, id string) (*domain.Client, error)
	FindClientByContact(ctx context.Context, email string, phone string) (*domain.Client, error)
	CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error)

	// Sales.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	ListSalesByClient(ctx context.Context, clientID string) ([]domain.Sale, error)
	ListSaleItemsByStaff(ctx context.Context, staffID string) ([]domain.Sale, error)

	// Orders.
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, status string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error)
	CompleteOrderWithSale(ctx context.Context, orderID string, sale domain.Sale) (*domain.Order, *domain.Sale, error)
	DeleteOrder(ctx context.Context, id string) error

	// Cashier sessions.
	OpenCashierSession(ctx context.Context, session domain.CashierSession) (*domain.CashierSession, error)
	CloseCashierSession(ctx context.Context, closedBy string, withdrawAmount float64, closedAt time.Time) (*domain.CashierSession, error)
	ActiveCashierSession(ctx context.Context) (*domain.CashierSession, error)
	ListCashierSessions(ctx context.Context, limit int) ([]domain.CashierSession, error)

	// Commission.
	CreateStaffPaymentWithExpense(ctx context.Context, payment domain.StaffPayment, expense domain.Expense) (*domain.StaffPayment, error)
	ListStaffPayments(ctx context.Context, staffID string) ([]domain.StaffPayment, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error)

	// Appointments.
	GetAppointmentByID(ctx context.Context, id string) (*domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (*domain.Appointment, error)
	SettleAppointment(ctx context.Context, id string) (*domain.Appointment, error)

	// Hair quotes and configuration.
	GetHairConfig(ctx context.Context) (*domain.HairConfig, error)
	SaveHairConfig(ctx context.Context, cfg domain.HairConfig) (*domain.HairConfig, error)
	CreateHairQuote(ctx context.Context, quote domain.HairQuote) (*domain.HairQuote, error)
	GetHairQuoteByID(ctx context.Context, id string) (*domain.HairQuote, error)
	GetHairQuoteByApprovalCode(ctx context.Context, code string) (*domain.HairQuote, error)
	ListHairQuotes(ctx context.Context, evaluatorID string, status string) ([]domain.HairQuote, error)
	PurchaseHairQuote(ctx context.Context, quote domain.HairQuote, expense domain.Expense) (*domain.HairQuote, error)
	UpdateHairQuoteStatus(ctx context.Context, id string, status string) (*domain.HairQuote, error)

	// Operator accounts.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
