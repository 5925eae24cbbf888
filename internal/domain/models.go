package domain

import (
	"strconv"
	"strings"
	"time"
)

// Money is an amount in whole kyat. Prices, tenders and totals are never
// fractional; net channel deltas reuse the type but may go negative.
type Money int64

// ParseMoney coerces free-form tender input to an amount. Malformed or
// negative input yields zero so typing in the tender fields never errors.
func ParseMoney(s string) Money {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return Money(v)
}

type PaymentType string

const (
	PaymentCash               PaymentType = "CASH"
	PaymentKPay               PaymentType = "KPAY"
	PaymentMixed              PaymentType = "MIXED"
	PaymentCashWithKPayChange PaymentType = "CASH_WITH_KPAY_CHANGE"
)

// ChangeChannel names the channel change is returned through. Empty means no
// change was due; persisted sales store that as NULL, never a default channel.
type ChangeChannel string

const (
	ChangeViaCash ChangeChannel = "CASH"
	ChangeViaKPay ChangeChannel = "KPAY"
)

type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BuyPrice  Money  `json:"buy_price"`
	SellPrice Money  `json:"sell_price"`
	Stock     int    `json:"stock"`
	ImageURL  string `json:"image_url,omitempty"`
	IsDeleted bool   `json:"is_deleted"`
}

// ProductUpsertRequest carries a partial product edit. An empty ID means
// insert; pointer fields left nil keep the stored value on update.
type ProductUpsertRequest struct {
	ID        string  `json:"id,omitempty"`
	Name      *string `json:"name,omitempty"`
	BuyPrice  *Money  `json:"buy_price,omitempty"`
	SellPrice *Money  `json:"sell_price,omitempty"`
	Stock     *int    `json:"stock,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
}

// Sale is the immutable record of one settled checkout. NetCash and NetKPay
// are the deltas applied to the drawer and the KPay balance after change was
// paid out; either may be negative when change was routed through a channel
// that tendered less than it returned.
type Sale struct {
	ID            string        `json:"id"`
	Total         Money         `json:"total"`
	Profit        Money         `json:"profit"`
	PaymentType   PaymentType   `json:"payment_type"`
	NetCash       Money         `json:"cash_amount"`
	NetKPay       Money         `json:"kpay_amount"`
	CashReceived  Money         `json:"cash_received"`
	KPayReceived  Money         `json:"kpay_received"`
	Change        Money         `json:"change_amount"`
	ChangeChannel ChangeChannel `json:"change_method,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []SaleItem    `json:"sale_items"`
}

// SaleItem captures a cart line at confirmation time. Price is copied from
// the product, not joined live, so later catalog edits never alter history.
type SaleItem struct {
	ID          string `json:"id,omitempty"`
	SaleID      string `json:"sale_id,omitempty"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Qty         int    `json:"qty"`
	Price       Money  `json:"price"`
}

// StockDecrement is one line of a batched conditional stock decrement.
type StockDecrement struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// CheckoutLine references a catalog product by id; price and name are
// resolved server-side so clients cannot set their own prices.
type CheckoutLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// CheckoutRequest carries the cart and the raw tender fields as the register
// sends them. Tender values are strings on purpose; whatever was typed is
// coerced, never rejected. An empty change_channel picks the default.
type CheckoutRequest struct {
	Items         []CheckoutLine `json:"items"`
	CashTendered  string         `json:"cash_tendered"`
	KPayTendered  string         `json:"kpay_tendered"`
	ChangeChannel ChangeChannel  `json:"change_channel,omitempty"`
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

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// PaymentTypeSummary is one row of the per-payment-type report breakdown.
type PaymentTypeSummary struct {
	PaymentType PaymentType `json:"payment_type"`
	Sales       int         `json:"sales"`
	Total       Money       `json:"total"`
}

// DailyBucket aggregates one calendar day for the overview chart.
type DailyBucket struct {
	Date    string `json:"date"`
	Total   Money  `json:"total"`
	Profit  Money  `json:"profit"`
	NetCash Money  `json:"cash_amount"`
	NetKPay Money  `json:"kpay_amount"`
}

// BalanceReport nets a date range of sales against the two running balances.
type BalanceReport struct {
	From        string               `json:"from,omitempty"`
	To          string               `json:"to,omitempty"`
	Sales       int                  `json:"sales"`
	Total       Money                `json:"total"`
	Profit      Money                `json:"profit"`
	NetCash     Money                `json:"cash_balance"`
	NetKPay     Money                `json:"kpay_balance"`
	ByPayment   []PaymentTypeSummary `json:"by_payment"`
	DailyTotals []DailyBucket        `json:"daily_totals"`
}
