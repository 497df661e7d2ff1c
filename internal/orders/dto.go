package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/enums"
)

// OrderSummary is one row of an order history listing.
type OrderSummary struct {
	ID            uuid.UUID            `json:"id"`
	UserID        uuid.UUID            `json:"user_id"`
	CreatedAt     time.Time            `json:"created_at"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	Status        enums.OrderStatus    `json:"status"`
	DisplayStatus enums.OrderStatus    `json:"display_status"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	PaymentStatus *enums.PaymentStatus `json:"payment_status,omitempty"`
	ItemCount     int                  `json:"item_count"`
}

// OrderList is a cursor page of summaries.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderItemDTO is a frozen order line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PaymentDTO exposes the payment without the gateway signature.
type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	Amount           decimal.Decimal     `json:"amount"`
	Method           enums.PaymentMethod `json:"method"`
	Status           enums.PaymentStatus `json:"status"`
	GatewayOrderID   *string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string             `json:"gateway_payment_id,omitempty"`
	Receipt          *string             `json:"receipt,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// OrderDetail is a single order with its lines and latest payment.
type OrderDetail struct {
	OrderSummary
	Items   []OrderItemDTO `json:"items"`
	Payment *PaymentDTO    `json:"payment,omitempty"`
}

func latestPayment(order models.Order) *models.Payment {
	var latest *models.Payment
	for i := range order.Payments {
		p := &order.Payments[i]
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	return latest
}

func summaryOf(order models.Order) OrderSummary {
	summary := OrderSummary{
		ID:            order.ID,
		UserID:        order.UserID,
		CreatedAt:     order.CreatedAt,
		TotalPrice:    order.TotalPrice,
		Status:        order.Status,
		DisplayStatus: order.Status,
	}
	for _, item := range order.Items {
		summary.ItemCount += item.Quantity
	}
	if p := latestPayment(order); p != nil {
		method, status := p.Method, p.Status
		summary.PaymentMethod = &method
		summary.PaymentStatus = &status
		summary.DisplayStatus = DisplayStatus(order.Status, &status)
	}
	return summary
}

func detailOf(order models.Order) OrderDetail {
	detail := OrderDetail{
		OrderSummary: summaryOf(order),
		Items:        make([]OrderItemDTO, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	if p := latestPayment(order); p != nil {
		detail.Payment = &PaymentDTO{
			ID:               p.ID,
			Amount:           p.Amount,
			Method:           p.Method,
			Status:           p.Status,
			GatewayOrderID:   p.GatewayOrderID,
			GatewayPaymentID: p.GatewayPaymentID,
			Receipt:          p.Receipt,
			CreatedAt:        p.CreatedAt,
		}
	}
	return detail
}
