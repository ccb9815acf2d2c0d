package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"belezapos/backend/internal/domain"
	"belezapos/backend/internal/store"
	"belezapos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price, unit, stock, origin, created_at
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Unit, &p.Stock, &p.Origin, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, unit, stock, origin, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Unit, &p.Stock, &p.Origin, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price, unit, stock, origin, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, product.ID, product.Name, product.Category, product.Price, product.Unit, product.Stock, product.Origin, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, price = $4, unit = $5, stock = $6, origin = $7
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.Price, product.Unit, product.Stock, product.Origin)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListServices(ctx context.Context) ([]domain.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price, duration_minutes, created_at
		FROM services
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]domain.Service, 0, 32)
	for rows.Next() {
		var svc domain.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Category, &svc.Price, &svc.DurationMinutes, &svc.CreatedAt); err != nil {
			return nil, err
		}
		svc.CreatedAt = svc.CreatedAt.UTC()
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) GetServiceByID(ctx context.Context, id string) (*domain.Service, error) {
	var svc domain.Service
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, duration_minutes, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &svc.Category, &svc.Price, &svc.DurationMinutes, &svc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	svc.CreatedAt = svc.CreatedAt.UTC()
	return &svc, nil
}

func (s *Store) CreateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	if svc.Name == "" || svc.Price < 0 {
		return nil, store.ErrInvalidInput
	}
	if svc.ID == "" {
		svc.ID = xid.New("serv")
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, category, price, duration_minutes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, svc.ID, svc.Name, svc.Category, svc.Price, svc.DurationMinutes, svc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := svc
	return &created, nil
}

func (s *Store) UpdateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	if svc.ID == "" || svc.Name == "" || svc.Price < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE services
		SET name = $2, category = $3, price = $4, duration_minutes = $5
		WHERE id = $1
	`, svc.ID, svc.Name, svc.Category, svc.Price, svc.DurationMinutes)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := svc
	return &updated, nil
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = GREATEST(stock + $2, 0)
		WHERE id = $1
	`, productID, delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, commission_rate, active, created_at
		FROM staff
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.Staff, 0, 16)
	for rows.Next() {
		var m domain.Staff
		if err := rows.Scan(&m.ID, &m.Name, &m.CommissionRate, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) GetStaffByID(ctx context.Context, id string) (*domain.Staff, error) {
	var m domain.Staff
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, commission_rate, active, created_at
		FROM staff
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.CommissionRate, &m.Active, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func (s *Store) CreateStaff(ctx context.Context, staff domain.Staff) (*domain.Staff, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, name, commission_rate, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, staff.ID, staff.Name, staff.CommissionRate, staff.Active, staff.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := staff
	return &created, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,''), created_at
		FROM clients
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, 64)
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Store) GetClientByID(ctx context.Context, id string) (*domain.Client, error) {
	var c domain.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,''), created_at
		FROM clients
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) FindClientByContact(ctx context.Context, email string, phone string) (*domain.Client, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, store.ErrNotFound
	}

	var c domain.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,''), created_at
		FROM clients
		WHERE ($1 <> '' AND lower(email) = $1) OR ($2 <> '' AND phone = $2)
		LIMIT 1
	`, email, phone).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	if client.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if client.ID == "" {
		client.ID = xid.New("cli")
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, phone, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, client.ID, client.Name, nullIfEmpty(client.Email), nullIfEmpty(client.Phone), client.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := client
	return &created, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (id, client_id, client_name, items, total, payment_method, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, nullIfEmpty(sale.ClientID), sale.ClientName, itemsJSON, sale.Total, sale.PaymentMethod, sale.CreatedBy, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	query := `
		SELECT id, COALESCE(client_id,''), client_name, items, total, payment_method, created_by, created_at
		FROM sales
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, nullTimeValue(from), nullTimeValue(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSales(rows)
}

func (s *Store) ListSalesByClient(ctx context.Context, clientID string) ([]domain.Sale, error) {
	if clientID == "" {
		return nil, store.ErrInvalidInput
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(client_id,''), client_name, items, total, payment_method, created_by, created_at
		FROM sales
		WHERE client_id = $1
		ORDER BY created_at ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSales(rows)
}

func (s *Store) ListSaleItemsByStaff(ctx context.Context, staffID string) ([]domain.Sale, error) {
	if staffID == "" {
		return nil, store.ErrInvalidInput
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(client_id,''), client_name, items, total, payment_method, created_by, created_at
		FROM sales
		WHERE items @> $1::jsonb
		ORDER BY created_at ASC
	`, `[{"staff_id":"`+staffID+`"}]`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSales(rows)
}

func scanSales(rows *sql.Rows) ([]domain.Sale, error) {
	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		var itemsRaw []byte
		if err := rows.Scan(&sale.ID, &sale.ClientID, &sale.ClientName, &itemsRaw, &sale.Total, &sale.PaymentMethod, &sale.CreatedBy, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		if len(itemsRaw) > 0 {
			if err := json.Unmarshal(itemsRaw, &sale.Items); err != nil {
				return nil, err
			}
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
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

	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, email, phone, delivery_mode, lines, total, status, sale_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, order.ID, order.CustomerName, nullIfEmpty(order.Email), nullIfEmpty(order.Phone), order.DeliveryMode,
		linesJSON, order.Total, order.Status, nullIfEmpty(order.SaleID), order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := order
	return &created, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var linesRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, COALESCE(email,''), COALESCE(phone,''), delivery_mode,
			lines, total, status, COALESCE(sale_id,''), created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerName, &order.Email, &order.Phone, &order.DeliveryMode,
		&linesRaw, &order.Total, &order.Status, &order.SaleID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()
	if len(linesRaw) > 0 {
		if err := json.Unmarshal(linesRaw, &order.Lines); err != nil {
			return nil, err
		}
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, status string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, COALESCE(email,''), COALESCE(phone,''), delivery_mode,
			lines, total, status, COALESCE(sale_id,''), created_at
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 32)
	for rows.Next() {
		var order domain.Order
		var linesRaw []byte
		if err := rows.Scan(&order.ID, &order.CustomerName, &order.Email, &order.Phone, &order.DeliveryMode,
			&linesRaw, &order.Total, &order.Status, &order.SaleID, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.CreatedAt = order.CreatedAt.UTC()
		if len(linesRaw) > 0 {
			if err := json.Unmarshal(linesRaw, &order.Lines); err != nil {
				return nil, err
			}
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetOrderByID(ctx, id)
}

func (s *Store) CompleteOrderWithSale(ctx context.Context, orderID string, sale domain.Sale) (*domain.Order, *domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}
	if status == domain.OrderStatusCompleted || status == domain.OrderStatusCancelled {
		return nil, nil, store.ErrInvalidInput
	}

	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, client_id, client_name, items, total, payment_method, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, nullIfEmpty(sale.ClientID), sale.ClientName, itemsJSON, sale.Total, sale.PaymentMethod, sale.CreatedBy, sale.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, sale_id = $3
		WHERE id = $1
	`, orderID, domain.OrderStatusCompleted, sale.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	created := sale
	return order, &created, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) OpenCashierSession(ctx context.Context, session domain.CashierSession) (*domain.CashierSession, error) {
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var openID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM cashier_sessions WHERE status = 'open' LIMIT 1
	`).Scan(&openID)
	if err == nil {
		return nil, store.ErrSessionConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cashier_sessions (id, opened_at, opened_by, opening_balance, status)
		VALUES ($1,$2,$3,$4,$5)
	`, session.ID, session.OpenedAt, session.OpenedBy, session.OpeningBalance, session.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrSessionConflict
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := session
	return &created, nil
}

func (s *Store) CloseCashierSession(ctx context.Context, closedBy string, withdrawAmount float64, closedAt time.Time) (*domain.CashierSession, error) {
	if withdrawAmount < 0 {
		return nil, store.ErrInvalidInput
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	var session domain.CashierSession
	var closedAtNull sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		UPDATE cashier_sessions
		SET status = 'closed', closed_by = $1, withdrawn_amount = $2, closed_at = $3
		WHERE status = 'open'
		RETURNING id, opened_at, opened_by, opening_balance, status, closed_at, COALESCE(closed_by,''), withdrawn_amount
	`, closedBy, withdrawAmount, closedAt).Scan(
		&session.ID,
		&session.OpenedAt,
		&session.OpenedBy,
		&session.OpeningBalance,
		&session.Status,
		&closedAtNull,
		&session.ClosedBy,
		&session.WithdrawnAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionConflict
		}
		return nil, err
	}
	session.OpenedAt = session.OpenedAt.UTC()
	if closedAtNull.Valid {
		at := closedAtNull.Time.UTC()
		session.ClosedAt = &at
	}
	return &session, nil
}

func (s *Store) ActiveCashierSession(ctx context.Context) (*domain.CashierSession, error) {
	var session domain.CashierSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, opened_at, opened_by, opening_balance, status
		FROM cashier_sessions
		WHERE status = 'open'
		ORDER BY opened_at DESC
		LIMIT 1
	`).Scan(&session.ID, &session.OpenedAt, &session.OpenedBy, &session.OpeningBalance, &session.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	session.OpenedAt = session.OpenedAt.UTC()
	return &session, nil
}

func (s *Store) ListCashierSessions(ctx context.Context, limit int) ([]domain.CashierSession, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, opened_at, opened_by, opening_balance, status, closed_at, COALESCE(closed_by,''), withdrawn_amount
		FROM cashier_sessions
		ORDER BY opened_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.CashierSession, 0, limit)
	for rows.Next() {
		var session domain.CashierSession
		var closedAtNull sql.NullTime
		if err := rows.Scan(&session.ID, &session.OpenedAt, &session.OpenedBy, &session.OpeningBalance,
			&session.Status, &closedAtNull, &session.ClosedBy, &session.WithdrawnAmount); err != nil {
			return nil, err
		}
		session.OpenedAt = session.OpenedAt.UTC()
		if closedAtNull.Valid {
			at := closedAtNull.Time.UTC()
			session.ClosedAt = &at
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) CreateStaffPaymentWithExpense(ctx context.Context, payment domain.StaffPayment, expense domain.Expense) (*domain.StaffPayment, error) {
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM staff WHERE id = $1)`, payment.StaffID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO staff_payments (id, staff_id, amount, note, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, payment.ID, payment.StaffID, payment.Amount, payment.Note, payment.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, category, description, amount, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, expense.ID, expense.Category, expense.Description, expense.Amount, expense.CreatedBy, expense.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := payment
	return &created, nil
}

func (s *Store) ListStaffPayments(ctx context.Context, staffID string) ([]domain.StaffPayment, error) {
	if staffID == "" {
		return nil, store.ErrInvalidInput
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, staff_id, amount, COALESCE(note,''), created_at
		FROM staff_payments
		WHERE staff_id = $1
		ORDER BY created_at ASC
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.StaffPayment, 0, 16)
	for rows.Next() {
		var payment domain.StaffPayment
		if err := rows.Scan(&payment.ID, &payment.StaffID, &payment.Amount, &payment.Note, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payment.CreatedAt = payment.CreatedAt.UTC()
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, description, amount, created_by, created_at
		FROM expenses
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at ASC
	`, nullTimeValue(from), nullTimeValue(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Description, &e.Amount, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) GetAppointmentByID(ctx context.Context, id string) (*domain.Appointment, error) {
	var appt domain.Appointment
	var serviceIDsRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(client_id,''), client_name, service_ids, COALESCE(primary_staff_id,''), scheduled_at, status
		FROM appointments
		WHERE id = $1
	`, id).Scan(&appt.ID, &appt.ClientID, &appt.ClientName, &serviceIDsRaw, &appt.PrimaryStaffID, &appt.ScheduledAt, &appt.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	appt.ScheduledAt = appt.ScheduledAt.UTC()
	if len(serviceIDsRaw) > 0 {
		if err := json.Unmarshal(serviceIDsRaw, &appt.ServiceIDs); err != nil {
			return nil, err
		}
	}
	return &appt, nil
}

func (s *Store) CreateAppointment(ctx context.Context, appt domain.Appointment) (*domain.Appointment, error) {
	if appt.ClientName == "" || len(appt.ServiceIDs) == 0 {
		return nil, store.ErrInvalidInput
	}
	if appt.ID == "" {
		appt.ID = xid.New("appt")
	}
	if appt.Status == "" {
		appt.Status = domain.AppointmentStatusScheduled
	}

	serviceIDsJSON, err := json.Marshal(appt.ServiceIDs)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, client_id, client_name, service_ids, primary_staff_id, scheduled_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, appt.ID, nullIfEmpty(appt.ClientID), appt.ClientName, serviceIDsJSON, nullIfEmpty(appt.PrimaryStaffID), appt.ScheduledAt, appt.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := appt
	return &created, nil
}

func (s *Store) SettleAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
	`, id, domain.AppointmentStatusSettled)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetAppointmentByID(ctx, id)
}

// The hair configuration lives as a single versioned jsonb row.
func (s *Store) GetHairConfig(ctx context.Context) (*domain.HairConfig, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload
		FROM hair_config
		ORDER BY version DESC
		LIMIT 1
	`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var cfg domain.HairConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) SaveHairConfig(ctx context.Context, cfg domain.HairConfig) (*domain.HairConfig, error) {
	if cfg.MaxPriceLimit < 0 || cfg.MonthlyGoal < 0 {
		return nil, store.ErrInvalidInput
	}
	cfg.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var latest int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM hair_config
	`).Scan(&latest)
	if err != nil {
		return nil, err
	}
	cfg.Version = latest + 1

	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO hair_config (version, payload, updated_at)
		VALUES ($1,$2,$3)
	`, cfg.Version, payload, cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := cfg
	return &saved, nil
}

func (s *Store) CreateHairQuote(ctx context.Context, quote domain.HairQuote) (*domain.HairQuote, error) {
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

	selectionJSON, err := json.Marshal(quote.Selection)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hair_quotes (id, evaluator_id, evaluator_name, selection, total, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, quote.ID, quote.EvaluatorID, quote.EvaluatorName, selectionJSON, quote.Total, quote.Status, quote.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := quote
	return &created, nil
}

func (s *Store) GetHairQuoteByID(ctx context.Context, id string) (*domain.HairQuote, error) {
	return s.findHairQuote(ctx, "id", id)
}

func (s *Store) GetHairQuoteByApprovalCode(ctx context.Context, code string) (*domain.HairQuote, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrInvalidInput
	}
	return s.findHairQuote(ctx, "approval_code", code)
}

func (s *Store) findHairQuote(ctx context.Context, column string, value string) (*domain.HairQuote, error) {
	if column != "id" && column != "approval_code" {
		return nil, store.ErrInvalidInput
	}

	query := `
		SELECT id, evaluator_id, evaluator_name, selection, total, status,
			seller, photos, COALESCE(approval_code,''), purchased_at, created_at
		FROM hair_quotes
		WHERE ` + column + ` = $1
	`
	row := s.db.QueryRowContext(ctx, query, value)
	quote, err := scanHairQuote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return quote, nil
}

func (s *Store) ListHairQuotes(ctx context.Context, evaluatorID string, status string) ([]domain.HairQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, evaluator_id, evaluator_name, selection, total, status,
			seller, photos, COALESCE(approval_code,''), purchased_at, created_at
		FROM hair_quotes
		WHERE ($1 = '' OR evaluator_id = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC
	`, evaluatorID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make([]domain.HairQuote, 0, 32)
	for rows.Next() {
		quote, err := scanHairQuote(rows.Scan)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *quote)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return quotes, nil
}

func scanHairQuote(scan func(dest ...any) error) (*domain.HairQuote, error) {
	var quote domain.HairQuote
	var selectionRaw []byte
	var sellerRaw []byte
	var photosRaw []byte
	var purchasedAtNull sql.NullTime
	err := scan(
		&quote.ID,
		&quote.EvaluatorID,
		&quote.EvaluatorName,
		&selectionRaw,
		&quote.Total,
		&quote.Status,
		&sellerRaw,
		&photosRaw,
		&quote.ApprovalCode,
		&purchasedAtNull,
		&quote.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	quote.CreatedAt = quote.CreatedAt.UTC()
	if len(selectionRaw) > 0 {
		if err := json.Unmarshal(selectionRaw, &quote.Selection); err != nil {
			return nil, err
		}
	}
	if len(sellerRaw) > 0 {
		var seller domain.HairSeller
		if err := json.Unmarshal(sellerRaw, &seller); err != nil {
			return nil, err
		}
		quote.Seller = &seller
	}
	if len(photosRaw) > 0 {
		var photos domain.HairPhotos
		if err := json.Unmarshal(photosRaw, &photos); err != nil {
			return nil, err
		}
		quote.Photos = &photos
	}
	if purchasedAtNull.Valid {
		at := purchasedAtNull.Time.UTC()
		quote.PurchasedAt = &at
	}
	return &quote, nil
}

func (s *Store) PurchaseHairQuote(ctx context.Context, quote domain.HairQuote, expense domain.Expense) (*domain.HairQuote, error) {
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM hair_quotes WHERE id = $1 FOR UPDATE
	`, quote.ID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.QuoteStatusQuoted {
		return nil, store.ErrInvalidInput
	}

	sellerJSON, err := json.Marshal(quote.Seller)
	if err != nil {
		return nil, err
	}
	photosJSON, err := json.Marshal(quote.Photos)
	if err != nil {
		return nil, err
	}

	quote.Status = domain.QuoteStatusPurchased
	_, err = tx.ExecContext(ctx, `
		UPDATE hair_quotes
		SET status = $2, seller = $3, photos = $4, approval_code = $5, purchased_at = $6
		WHERE id = $1
	`, quote.ID, quote.Status, sellerJSON, photosJSON, quote.ApprovalCode, nullTime(quote.PurchasedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, category, description, amount, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, expense.ID, expense.Category, expense.Description, expense.Amount, expense.CreatedBy, expense.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	purchased := quote
	return &purchased, nil
}

func (s *Store) UpdateHairQuoteStatus(ctx context.Context, id string, status string) (*domain.HairQuote, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE hair_quotes
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetHairQuoteByID(ctx, id)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullTimeValue(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
