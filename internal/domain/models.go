package domain

import "github.com/shopspring/decimal"

// TimeLayout matches sqlite's CURRENT_TIMESTAMP so stored timestamps sort lexically.
const TimeLayout = "2006-01-02 15:04:05"

type Category struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	IconURL   string `db:"icon_url" json:"icon_url,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at,omitempty"`
}

type Product struct {
	ID          string          `db:"id" json:"id"`
	CategoryID  string          `db:"category_id" json:"category_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageURL    string          `db:"image_url" json:"image_url,omitempty"`
	Stock       int             `db:"stock" json:"stock"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
	UpdatedAt   string          `db:"updated_at" json:"updated_at,omitempty"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty,omitempty"`
	ETA    string `json:"eta,omitempty"`
}

// Stock movement reasons.
const (
	MoveSale       = "sale"
	MovePurchase   = "purchase"
	MoveReturn     = "return"
	MoveAdjustment = "adjustment"
)

type StockMovement struct {
	ID        int64  `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"product_id"`
	Delta     int    `db:"delta" json:"delta"`
	Reason    string `db:"reason" json:"reason"`
	RefID     string `db:"ref_id" json:"ref_id,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Order statuses.
const (
	OrderPending   = "PENDING"
	OrderConfirmed = "CONFIRMED"
	OrderShipped   = "SHIPPED"
	OrderDelivered = "DELIVERED"
	OrderCancelled = "CANCELLED"
)

const PaymentCOD = "COD"

type Order struct {
	ID              string          `db:"id" json:"id"`
	SessionID       string          `db:"session_id" json:"-"`
	UserID          string          `db:"user_id" json:"user_id,omitempty"`
	CustomerName    string          `db:"customer_name" json:"customer_name"`
	CustomerPhone   string          `db:"customer_phone" json:"customer_phone"`
	CustomerAddress string          `db:"customer_address" json:"customer_address"`
	CustomerEmail   string          `db:"customer_email" json:"customer_email,omitempty"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingCost    decimal.Decimal `db:"shipping_cost" json:"shipping_cost"`
	Total           decimal.Decimal `db:"total" json:"total"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	Status          string          `db:"status" json:"status"`
	CreatedAt       string          `db:"created_at" json:"created_at"`
}

type OrderItem struct {
	OrderID    string          `db:"order_id" json:"order_id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	Name       string          `db:"name" json:"name"`
	Qty        int             `db:"qty" json:"qty"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
}

type Supplier struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Phone     string `db:"phone" json:"phone,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Purchase payment methods.
const (
	PayCash   = "cash"
	PayCredit = "credit"
)

type Purchase struct {
	ID            string          `db:"id" json:"id"`
	SupplierID    string          `db:"supplier_id" json:"supplier_id"`
	SupplierName  string          `db:"supplier_name" json:"supplier_name"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount    decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	DueDate       string          `db:"due_date" json:"due_date,omitempty"`
	Note          string          `db:"note" json:"note,omitempty"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
	PaymentStatus string          `db:"-" json:"payment_status"`
}

type PurchaseItem struct {
	PurchaseID string          `db:"purchase_id" json:"purchase_id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	Qty        int             `db:"qty" json:"qty"`
	UnitCost   decimal.Decimal `db:"unit_cost" json:"unit_cost"`
}

type PurchasePayment struct {
	ID         string          `db:"id" json:"id"`
	PurchaseID string          `db:"purchase_id" json:"purchase_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	PaidAt     string          `db:"paid_at" json:"paid_at"`
	Note       string          `db:"note" json:"note,omitempty"`
}

// Return statuses.
const (
	ReturnRequested = "REQUESTED"
	ReturnApproved  = "APPROVED"
	ReturnRejected  = "REJECTED"
)

type Return struct {
	ID        string `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID string `db:"product_id" json:"product_id"`
	Qty       int    `db:"qty" json:"qty"`
	Reason    string `db:"reason" json:"reason"`
	Status    string `db:"status" json:"status"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at,omitempty"`
}

type Review struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"product_id"`
	UserID    string `db:"user_id" json:"user_id"`
	UserName  string `db:"user_name" json:"user_name"`
	Rating    int    `db:"rating" json:"rating"`
	Comment   string `db:"comment" json:"comment,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

type RatingSummary struct {
	ProductID string  `db:"product_id" json:"product_id"`
	Average   float64 `db:"average" json:"average"`
	Count     int     `db:"count" json:"count"`
}

type Referral struct {
	ReferrerID   string `db:"referrer_id" json:"referrer_id"`
	ReferredID   string `db:"referred_id" json:"referred_id"`
	ReferredName string `db:"referred_name" json:"referred_name"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}

type FlashSale struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	StartsAt  string          `db:"starts_at" json:"starts_at"`
	EndsAt    string          `db:"ends_at" json:"ends_at"`
	CreatedAt string          `db:"created_at" json:"created_at"`
	Items     []FlashSaleItem `db:"-" json:"items"`
}

type FlashSaleItem struct {
	SaleID       string          `db:"sale_id" json:"sale_id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	RegularPrice decimal.Decimal `db:"regular_price" json:"regular_price"`
	SalePrice    decimal.Decimal `db:"sale_price" json:"sale_price"`
	Quota        int             `db:"quota" json:"quota"`
	Sold         int             `db:"sold" json:"sold"`
}

// Remaining is the unsold part of the sale quota.
func (i FlashSaleItem) Remaining() int {
	if r := i.Quota - i.Sold; r > 0 {
		return r
	}
	return 0
}
