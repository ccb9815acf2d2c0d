package domain

import (
	"math"
	"time"
)

// Unit is the measure a product is priced and stocked in, or the measure a
// sale line was sold in. Prices and stock are always recorded in the
// product's base unit; sale-time units are converted to it.
type Unit string

const (
	UnitPiece    Unit = "unit"
	UnitPieceAlt Unit = "piece"
	UnitKilogram Unit = "kg"
	UnitGram     Unit = "g"
)

// ConversionFactor returns the multiplier that converts a quantity expressed
// in `from` into the equivalent quantity in `to`. Count units (unit/piece)
// and same-unit pairs convert 1:1; kg and g convert by 1000.
func ConversionFactor(from Unit, to Unit) float64 {
	if from == to {
		return 1
	}
	if from == UnitKilogram && to == UnitGram {
		return 1000
	}
	if from == UnitGram && to == UnitKilogram {
		return 0.001
	}
	return 1
}

// Round2 normalizes a monetary amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

const (
	OriginStore = "store"
	OriginHair  = "hair"
)

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Unit      Unit      `json:"unit"`
	Stock     float64   `json:"stock"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Unit     Unit    `json:"unit"`
	Stock    float64 `json:"stock"`
	Origin   string  `json:"origin"`
}

type ProductUpdateRequest struct {
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Unit     *Unit    `json:"unit,omitempty"`
	Stock    *float64 `json:"stock,omitempty"`
}

type Service struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type ServiceCreateRequest struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
}

type Staff struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CommissionRate float64   `json:"commission_rate"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type StaffCreateRequest struct {
	Name           string  `json:"name"`
	CommissionRate float64 `json:"commission_rate"`
}

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ClientCreateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

const (
	LineTypeProduct = "product"
	LineTypeService = "service"
)

// SaleItem is a single line of a Sale. Name, price, staff name and category
// are snapshots taken at sale time; later catalog or staff edits never
// change historical lines.
type SaleItem struct {
	Type      string  `json:"type"`
	RefID     string  `json:"ref_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      Unit    `json:"unit,omitempty"`
	UnitPrice float64 `json:"unit_price"`
	StaffID   string  `json:"staff_id"`
	StaffName string  `json:"staff_name"`
	Category  string  `json:"category,omitempty"`
	Origin    string  `json:"origin,omitempty"`
}

// Total is the line total: quantity × unit price, rounded to two decimals.
func (i SaleItem) Total() float64 {
	return Round2(i.Quantity * i.UnitPrice)
}

// Sale is immutable after creation and is the sole source of truth for
// commission computation and revenue reporting.
type Sale struct {
	ID            string     `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	ClientID      string     `json:"client_id,omitempty"`
	ClientName    string     `json:"client_name,omitempty"`
	Items         []SaleItem `json:"items"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	CreatedBy     string     `json:"created_by"`
}

// Cart is the Sale Builder's working state. Lines are already priced and
// staff-attributed; the cart itself holds no live catalog references.
type Cart struct {
	Lines []SaleItem `json:"lines"`
}

func (c *Cart) Total() float64 {
	total := 0.0
	for _, line := range c.Lines {
		total += line.Total()
	}
	return Round2(total)
}

// NormalizedProductQty sums the cart's quantities for one product, expressed
// in that product's base unit.
func (c *Cart) NormalizedProductQty(productID string, baseUnit Unit) float64 {
	total := 0.0
	for _, line := range c.Lines {
		if line.Type != LineTypeProduct || line.RefID != productID {
			continue
		}
		total += line.Quantity * ConversionFactor(line.Unit, baseUnit)
	}
	return total
}

type AddProductLineRequest struct {
	ProductID string  `json:"product_id"`
	StaffID   string  `json:"staff_id"`
	Quantity  float64 `json:"quantity"`
	Unit      Unit    `json:"unit"`
}

type AddServiceLineRequest struct {
	ServiceID string   `json:"service_id"`
	StaffID   string   `json:"staff_id"`
	Price     *float64 `json:"price,omitempty"`
}

type FinishSaleRequest struct {
	ClientID      string `json:"client_id"`
	PaymentMethod string `json:"payment_method"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

type OrderLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      Unit    `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
}

func (l OrderLine) Total() float64 {
	return Round2(l.Quantity * l.UnitPrice)
}

// Order represents a stock hold from the moment it is created, not merely an
// intent: stock is reserved at creation time.
type Order struct {
	ID           string      `json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	CustomerName string      `json:"customer_name"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	DeliveryMode string      `json:"delivery_mode"`
	Lines        []OrderLine `json:"lines"`
	Total        float64     `json:"total"`
	Status       string      `json:"status"`
	SaleID       string      `json:"sale_id,omitempty"`
}

type OrderCreateRequest struct {
	CustomerName string      `json:"customer_name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	DeliveryMode string      `json:"delivery_mode"`
	Lines        []OrderLine `json:"lines"`
}

const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)

type CashierSession struct {
	ID              string     `json:"id"`
	OpenedAt        time.Time  `json:"opened_at"`
	OpenedBy        string     `json:"opened_by"`
	OpeningBalance  float64    `json:"opening_balance"`
	Status          string     `json:"status"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	ClosedBy        string     `json:"closed_by,omitempty"`
	WithdrawnAmount float64    `json:"withdrawn_amount,omitempty"`
}

type OpenCashierRequest struct {
	OpeningBalance float64 `json:"opening_balance"`
}

type CloseCashierRequest struct {
	WithdrawAmount float64 `json:"withdraw_amount"`
}

type StaffPayment struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staff_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	Note      string    `json:"note,omitempty"`
}

type CommissionPaymentRequest struct {
	StaffID string  `json:"staff_id"`
	Amount  float64 `json:"amount"`
	Note    string  `json:"note"`
}

// CommissionSummary buckets earned commission by the calendar period of each
// Sale's timestamp. Balance may be negative: overpayment is an administrative
// decision, not an error.
type CommissionSummary struct {
	StaffID   string  `json:"staff_id"`
	StaffName string  `json:"staff_name"`
	Today     float64 `json:"today"`
	Week      float64 `json:"week"`
	Month     float64 `json:"month"`
	Year      float64 `json:"year"`
	Lifetime  float64 `json:"lifetime"`
	Paid      float64 `json:"paid"`
	Balance   float64 `json:"balance"`
}

const (
	ExpenseCategoryCommission   = "Salários/Comissões"
	ExpenseCategoryHairPurchase = "Compra de Cabelo"
)

type Expense struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusSettled   = "settled"
)

type Appointment struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	ClientName     string    `json:"client_name"`
	ServiceIDs     []string  `json:"service_ids"`
	PrimaryStaffID string    `json:"primary_staff_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Status         string    `json:"status"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type OperatorCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OperatorUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type DailyRevenue struct {
	Date     string  `json:"date"`
	Sales    int     `json:"sales"`
	Total    float64 `json:"total"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}
