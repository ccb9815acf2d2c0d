package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
	"belezapos/backend/internal/xid"
)

type Store struct {
	mu             sync.RWMutex
	products       map[string]domain.Product
	services       map[string]domain.Service
	staff          map[string]domain.Staff
	clients        map[string]domain.Client
	salesByID      map[string]*domain.Sale
	saleOrder      []string
	ordersByID     map[string]domain.Order
	sessionsByID   map[string]domain.CashierSession
	sessionOrder   []string
	openSessionID  string
	staffPayments  map[string][]domain.StaffPayment
	expenses       []domain.Expense
	appointments   map[string]domain.Appointment
	hairQuotesByID map[string]domain.HairQuote
	hairQuoteOrder []string
	hairConfig     *domain.HairConfig
	users          map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory operator accounts for dev/demo
// mode. Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD;
// hardcoded dev defaults are used with a warning otherwise. Production runs
// on PostgreSQL (DATABASE_URL set) and never touches these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"balcao", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: "prod-shampoo-01", Name: "Shampoo Hidratante 500ml", Category: "higiene", Price: 38.90, Unit: domain.UnitPiece, Stock: 24, Origin: domain.OriginStore},
		{ID: "prod-condic-01", Name: "Condicionador Nutritivo 500ml", Category: "higiene", Price: 42.50, Unit: domain.UnitPiece, Stock: 18, Origin: domain.OriginStore},
		{ID: "prod-pomada-01", Name: "Pomada Modeladora", Category: "finalizacao", Price: 29.90, Unit: domain.UnitPiece, Stock: 30, Origin: domain.OriginStore},
		{ID: "prod-cera-01", Name: "Cera Capilar", Category: "finalizacao", Price: 25.00, Unit: domain.UnitPiece, Stock: 15, Origin: domain.OriginStore},
		{ID: "prod-tintura-01", Name: "Tintura Profissional", Category: "coloracao", Price: 180.00, Unit: domain.UnitKilogram, Stock: 2.5, Origin: domain.OriginStore},
		{ID: "prod-mecha-01", Name: "Mecha Natural 45cm", Category: "cabelo", Price: 900.00, Unit: domain.UnitKilogram, Stock: 1.2, Origin: domain.OriginHair},
	}

	services := []domain.Service{
		{ID: "serv-corte-01", Name: "Corte Feminino", Category: "corte", Price: 80.00, DurationMinutes: 45},
		{ID: "serv-corte-02", Name: "Corte Masculino", Category: "corte", Price: 45.00, DurationMinutes: 30},
		{ID: "serv-escova-01", Name: "Escova Progressiva", Category: "tratamento", Price: 250.00, DurationMinutes: 120},
		{ID: "serv-color-01", Name: "Coloração Completa", Category: "coloracao", Price: 220.00, DurationMinutes: 90},
		{ID: "serv-manic-01", Name: "Manicure", Category: "unhas", Price: 35.00, DurationMinutes: 40},
	}

	staffMembers := []domain.Staff{
		{ID: "staff-ana", Name: "Ana Paula", CommissionRate: 10, Active: true},
		{ID: "staff-bruno", Name: "Bruno Costa", CommissionRate: 15, Active: true},
		{ID: "staff-carla", Name: "Carla Mendes", CommissionRate: 12, Active: true},
	}

	clients := []domain.Client{
		{ID: "cli-maria", Name: "Maria Silva", Email: "maria@example.com", Phone: "11987650001"},
		{ID: "cli-joao", Name: "João Pereira", Email: "joao@example.com", Phone: "11987650002"},
		{ID: "cli-lucia", Name: "Lúcia Ramos", Phone: "11987650003"},
	}

	appointments := []domain.Appointment{
		{
			ID:             "appt-001",
			ClientID:       "cli-maria",
			ClientName:     "Maria Silva",
			ServiceIDs:     []string{"serv-corte-01", "serv-escova-01"},
			PrimaryStaffID: "staff-ana",
			ScheduledAt:    now.Add(2 * time.Hour),
			Status:         domain.AppointmentStatusScheduled,
		},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.CreatedAt = now
		productMap[p.ID] = p
	}
	serviceMap := make(map[string]domain.Service, len(services))
	for _, s := range services {
		s.CreatedAt = now
		serviceMap[s.ID] = s
	}
	staffMap := make(map[string]domain.Staff, len(staffMembers))
	for _, m := range staffMembers {
		m.CreatedAt = now
		staffMap[m.ID] = m
	}
	clientMap := make(map[string]domain.Client, len(clients))
	for _, c := range clients {
		c.CreatedAt = now
		clientMap[c.ID] = c
	}
	apptMap := make(map[string]domain.Appointment, len(appointments))
	for _, a := range appointments {
		apptMap[a.ID] = a
	}

	return &Store{
		products:       productMap,
		services:       serviceMap,
		staff:          staffMap,
		clients:        clientMap,
		salesByID:      make(map[string]*domain.Sale),
		ordersByID:     make(map[string]domain.Order),
		sessionsByID:   make(map[string]domain.CashierSession),
		staffPayments:  make(map[string][]domain.StaffPayment),
		expenses:       make([]domain.Expense, 0, 64),
		appointments:   apptMap,
		hairQuotesByID: make(map[string]domain.HairQuote),
		users:          seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := p
	return &dup, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.Unit == "" {
		product.Unit = domain.UnitPiece
	}
	if product.Origin == "" {
		product.Origin = domain.OriginStore
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListServices(_ context.Context) ([]domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	slices.SortFunc(services, func(a, b domain.Service) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return services, nil
}

func (s *Store) GetServiceByID(_ context.Context, id string) (*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, exists := s.services[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := svc
	return &dup, nil
}

func (s *Store) CreateService(_ context.Context, svc domain.Service) (*domain.Service, error) {
	if svc.Name == "" || svc.Price < 0 {
		return nil, store.ErrInvalidInput
	}
	if svc.ID == "" {
		svc.ID = xid.New("serv")
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.services[svc.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.services[svc.ID] = svc
	created := svc
	return &created, nil
}

func (s *Store) UpdateService(_ context.Context, svc domain.Service) (*domain.Service, error) {
	if svc.ID == "" || svc.Name == "" || svc.Price < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.services[svc.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	svc.CreatedAt = existing.CreatedAt
	s.services[svc.ID] = svc
	updated := svc
	return &updated, nil
}

func (s *Store) DeleteService(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.services[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.services, id)
	return nil
}

// AdjustStock applies a signed delta in base units. Negative results are
// floored at zero so committed stock never goes negative.
func (s *Store) AdjustStock(_ context.Context, productID string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[productID]
	if !exists {
		return store.ErrNotFound
	}
	p.Stock += delta
	if p.Stock < 0 {
		p.Stock = 0
	}
	s.products[productID] = p
	return nil
}

func (s *Store) ListStaff(_ context.Context) ([]domain.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]domain.Staff, 0, len(s.staff))
	for _, m := range s.staff {
		members = append(members, m)
	}
	slices.SortFunc(members, func(a, b domain.Staff) int {
		return cmpString(a.Name, b.Name)
	})
	return members, nil
}

func (s *Store) GetStaffByID(_ context.Context, id string) (*domain.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.staff[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := m
	return &dup, nil
}

func (s *Store) CreateStaff(_ context.Context, staff domain.Staff) (*domain.Staff, error) {
	if staff.Name == "" || staff.CommissionRate < 0 || staff.CommissionRate > 100 {
		return nil, store.ErrInvalidInput
	}
	if staff.ID == "" {
		staff.ID = xid.New("staff")
	}
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = time.Now().UTC()
	}
	staff.Active = true

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.staff[staff.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.staff[staff.ID] = staff
	created := staff
	return &created, nil
}

func (s *Store) ListClients(_ context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	slices.SortFunc(clients, func(a, b domain.Client) int {
		return cmpString(a.Name, b.Name)
	})
	return clients, nil
}

func (s *Store) GetClientByID(_ context.Context, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.clients[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := c
	return &dup, nil
}

func (s *Store) FindClientByContact(_ context.Context, email string, phone string) (*domain.Client, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, store.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if email != "" && strings.ToLower(c.Email) == email {
			dup := c
			return &dup, nil
		}
		if phone != "" && c.Phone == phone {
			dup := c
			return &dup, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateClient(_ context.Context, client domain.Client) (*domain.Client, error) {
	if client.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if client.ID == "" {
		client.ID = xid.New("cli")
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[client.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.clients[client.ID] = client
	created := client
	return &created, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	stored := cloneSale(&sale)
	s.salesByID[sale.ID] = stored
	s.saleOrder = append(s.saleOrder, sale.ID)
	return cloneSale(stored), nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.saleOrder))
	for _, id := range s.saleOrder {
		sale := s.salesByID[id]
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.CreatedAt.Before(to) {
			continue
		}
		sales = append(sales, *cloneSale(sale))
	}
	return sales, nil
}

func (s *Store) ListSalesByClient(_ context.Context, clientID string) ([]domain.Sale, error) {
	if clientID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 16)
	for _, id := range s.saleOrder {
		sale := s.salesByID[id]
		if sale.ClientID != clientID {
			continue
		}
		sales = append(sales, *cloneSale(sale))
	}
	return sales, nil
}

// ListSaleItemsByStaff returns every sale holding at least one line
// attributed to the staff member; commission math happens in the service.
func (s *Store) ListSaleItemsByStaff(_ context.Context, staffID string) ([]domain.Sale, error) {
	if staffID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 16)
	for _, id := range s.saleOrder {
		sale := s.salesByID[id]
		for _, item := range sale.Items {
			if item.StaffID == staffID {
				sales = append(sales, *cloneSale(sale))
				break
			}
		}
	}
	return sales, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if order.CustomerName == "" || len(order.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.ordersByID[order.ID] = cloneOrder(order)
	created := cloneOrder(order)
	return &created, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := cloneOrder(order)
	return &dup, nil
}

func (s *Store) ListOrders(_ context.Context, status string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, cloneOrder(order))
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return orders, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	order.Status = status
	s.ordersByID[id] = order
	dup := cloneOrder(order)
	return &dup, nil
}

// CompleteOrderWithSale flips the order to completed and appends the
// synthesized sale under a single lock, so the pair is observed atomically.
func (s *Store) CompleteOrderWithSale(_ context.Context, orderID string, sale domain.Sale) (*domain.Order, *domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[orderID]
	if !exists {
		return nil, nil, store.ErrNotFound
	}
	if order.Status == domain.OrderStatusCompleted || order.Status == domain.OrderStatusCancelled {
		return nil, nil, store.ErrInvalidInput
	}

	stored := cloneSale(&sale)
	s.salesByID[sale.ID] = stored
	s.saleOrder = append(s.saleOrder, sale.ID)

	order.Status = domain.OrderStatusCompleted
	order.SaleID = sale.ID
	s.ordersByID[orderID] = order

	dupOrder := cloneOrder(order)
	return &dupOrder, cloneSale(stored), nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ordersByID, id)
	return nil
}

func (s *Store) OpenCashierSession(_ context.Context, session domain.CashierSession) (*domain.CashierSession, error) {
	if session.OpeningBalance < 0 {
		return nil, store.ErrInvalidInput
	}
	if session.ID == "" {
		session.ID = xid.New("caixa")
	}
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now().UTC()
	}
	session.Status = domain.SessionStatusOpen

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openSessionID != "" {
		return nil, store.ErrSessionConflict
	}
	s.sessionsByID[session.ID] = session
	s.sessionOrder = append(s.sessionOrder, session.ID)
	s.openSessionID = session.ID
	created := session
	return &created, nil
}

func (s *Store) CloseCashierSession(_ context.Context, closedBy string, withdrawAmount float64, closedAt time.Time) (*domain.CashierSession, error) {
	if withdrawAmount < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openSessionID == "" {
		return nil, store.ErrSessionConflict
	}
	session := s.sessionsByID[s.openSessionID]
	session.Status = domain.SessionStatusClosed
	session.ClosedBy = closedBy
	session.WithdrawnAmount = withdrawAmount
	at := closedAt.UTC()
	session.ClosedAt = &at
	s.sessionsByID[session.ID] = session
	s.openSessionID = ""
	closed := session
	return &closed, nil
}

func (s *Store) ActiveCashierSession(_ context.Context) (*domain.CashierSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.openSessionID == "" {
		return nil, store.ErrNotFound
	}
	session := s.sessionsByID[s.openSessionID]
	dup := session
	return &dup, nil
}

func (s *Store) ListCashierSessions(_ context.Context, limit int) ([]domain.CashierSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	sessions := make([]domain.CashierSession, 0, limit)
	for i := len(s.sessionOrder) - 1; i >= 0 && len(sessions) < limit; i-- {
		sessions = append(sessions, s.sessionsByID[s.sessionOrder[i]])
	}
	return sessions, nil
}

// CreateStaffPaymentWithExpense appends the payment and its paired cash-flow
// expense under one lock: neither is observable without the other.
func (s *Store) CreateStaffPaymentWithExpense(_ context.Context, payment domain.StaffPayment, expense domain.Expense) (*domain.StaffPayment, error) {
	if payment.StaffID == "" || payment.Amount <= 0 || expense.Amount <= 0 {
		return nil, store.ErrInvalidInput
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = payment.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.staff[payment.StaffID]; !exists {
		return nil, store.ErrNotFound
	}
	s.staffPayments[payment.StaffID] = append(s.staffPayments[payment.StaffID], payment)
	s.expenses = append(s.expenses, expense)
	created := payment
	return &created, nil
}

func (s *Store) ListStaffPayments(_ context.Context, staffID string) ([]domain.StaffPayment, error) {
	if staffID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := s.staffPayments[staffID]
	result := make([]domain.StaffPayment, len(payments))
	copy(result, payments)
	return result, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !e.CreatedAt.Before(to) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) GetAppointmentByID(_ context.Context, id string) (*domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, exists := s.appointments[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := cloneAppointment(appt)
	return &dup, nil
}

func (s *Store) CreateAppointment(_ context.Context, appt domain.Appointment) (*domain.Appointment, error) {
	if appt.ClientName == "" || len(appt.ServiceIDs) == 0 {
		return nil, store.ErrInvalidInput
	}
	if appt.ID == "" {
		appt.ID = xid.New("appt")
	}
	if appt.Status == "" {
		appt.Status = domain.AppointmentStatusScheduled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.appointments[appt.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.appointments[appt.ID] = cloneAppointment(appt)
	created := cloneAppointment(appt)
	return &created, nil
}

func (s *Store) SettleAppointment(_ context.Context, id string) (*domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, exists := s.appointments[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	appt.Status = domain.AppointmentStatusSettled
	s.appointments[id] = appt
	dup := cloneAppointment(appt)
	return &dup, nil
}

func (s *Store) GetHairConfig(_ context.Context) (*domain.HairConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.hairConfig == nil {
		return nil, store.ErrNotFound
	}
	dup := cloneHairConfig(*s.hairConfig)
	return &dup, nil
}

func (s *Store) SaveHairConfig(_ context.Context, cfg domain.HairConfig) (*domain.HairConfig, error) {
	if cfg.MaxPriceLimit < 0 || cfg.MonthlyGoal < 0 {
		return nil, store.ErrInvalidInput
	}
	cfg.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hairConfig != nil {
		cfg.Version = s.hairConfig.Version + 1
	} else if cfg.Version < 1 {
		cfg.Version = 1
	}
	stored := cloneHairConfig(cfg)
	s.hairConfig = &stored
	dup := cloneHairConfig(stored)
	return &dup, nil
}

func (s *Store) CreateHairQuote(_ context.Context, quote domain.HairQuote) (*domain.HairQuote, error) {
	if quote.EvaluatorID == "" {
		return nil, store.ErrInvalidInput
	}
	if quote.ID == "" {
		quote.ID = xid.New("hq")
	}
	if quote.CreatedAt.IsZero() {
		quote.CreatedAt = time.Now().UTC()
	}
	if quote.Status == "" {
		quote.Status = domain.QuoteStatusQuoted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.hairQuotesByID[quote.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.hairQuotesByID[quote.ID] = cloneHairQuote(quote)
	s.hairQuoteOrder = append(s.hairQuoteOrder, quote.ID)
	created := cloneHairQuote(quote)
	return &created, nil
}

func (s *Store) GetHairQuoteByID(_ context.Context, id string) (*domain.HairQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, exists := s.hairQuotesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := cloneHairQuote(quote)
	return &dup, nil
}

func (s *Store) GetHairQuoteByApprovalCode(_ context.Context, code string) (*domain.HairQuote, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, quote := range s.hairQuotesByID {
		if quote.ApprovalCode == code {
			dup := cloneHairQuote(quote)
			return &dup, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListHairQuotes(_ context.Context, evaluatorID string, status string) ([]domain.HairQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]domain.HairQuote, 0, len(s.hairQuoteOrder))
	for _, id := range s.hairQuoteOrder {
		quote := s.hairQuotesByID[id]
		if evaluatorID != "" && quote.EvaluatorID != evaluatorID {
			continue
		}
		if status != "" && quote.Status != status {
			continue
		}
		quotes = append(quotes, cloneHairQuote(quote))
	}
	return quotes, nil
}

// PurchaseHairQuote commits the purchased quote and its paired expense entry
// under one lock, mirroring the payment+expense dual write.
func (s *Store) PurchaseHairQuote(_ context.Context, quote domain.HairQuote, expense domain.Expense) (*domain.HairQuote, error) {
	if quote.ID == "" || quote.Seller == nil || quote.Photos == nil || quote.ApprovalCode == "" {
		return nil, store.ErrInvalidInput
	}
	if expense.Amount <= 0 {
		return nil, store.ErrInvalidInput
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.hairQuotesByID[quote.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.Status != domain.QuoteStatusQuoted {
		return nil, store.ErrInvalidInput
	}
	quote.Status = domain.QuoteStatusPurchased
	s.hairQuotesByID[quote.ID] = cloneHairQuote(quote)
	s.expenses = append(s.expenses, expense)
	dup := cloneHairQuote(quote)
	return &dup, nil
}

func (s *Store) UpdateHairQuoteStatus(_ context.Context, id string, status string) (*domain.HairQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quote, exists := s.hairQuotesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	quote.Status = status
	s.hairQuotesByID[id] = quote
	dup := cloneHairQuote(quote)
	return &dup, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	user.Username = username

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return store.ErrInvalidInput
	}
	s.users[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.users[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.SaleItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}

func cloneOrder(src domain.Order) domain.Order {
	dup := src
	lines := make([]domain.OrderLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}

func cloneAppointment(src domain.Appointment) domain.Appointment {
	dup := src
	ids := make([]string, len(src.ServiceIDs))
	copy(ids, src.ServiceIDs)
	dup.ServiceIDs = ids
	return dup
}

func cloneHairQuote(src domain.HairQuote) domain.HairQuote {
	dup := src
	if src.Seller != nil {
		seller := *src.Seller
		dup.Seller = &seller
	}
	if src.Photos != nil {
		photos := *src.Photos
		dup.Photos = &photos
	}
	if src.PurchasedAt != nil {
		at := *src.PurchasedAt
		dup.PurchasedAt = &at
	}
	return dup
}

func cloneHairConfig(src domain.HairConfig) domain.HairConfig {
	dup := src
	dup.Textures = cloneOptions(src.Textures)
	dup.Lengths = cloneOptions(src.Lengths)
	dup.Circumferences = cloneOptions(src.Circumferences)
	dup.Conditions = cloneOptions(src.Conditions)
	dup.Qualities = cloneOptions(src.Qualities)
	dup.Colors = cloneOptions(src.Colors)
	return dup
}

func cloneOptions(src []domain.HairOption) []domain.HairOption {
	dup := make([]domain.HairOption, len(src))
	copy(dup, src)
	return dup
}
