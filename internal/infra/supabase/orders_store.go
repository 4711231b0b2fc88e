package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/graficahorizonte/payments-go/internal/domain"
	"github.com/graficahorizonte/payments-go/internal/infra/resilience"
)

// orderRow maps the orders table columns.
type orderRow struct {
	ID             string `json:"id"`
	IdempotencyKey string `json:"idempotency_key"`
	CustomerID     string `json:"customer_id"`
	Method         string `json:"method"`
	Amount         string `json:"amount"`
	Status         string `json:"status"`
	TxID           string `json:"txid"`
	ChargeID       int64  `json:"charge_id"`
	PaymentURL     string `json:"payment_url"`
	CreatedAt      string `json:"created_at"`
}

func (r *orderRow) toDomain() domain.Order {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.Order{
		ID:             r.ID,
		IdempotencyKey: r.IdempotencyKey,
		CustomerID:     r.CustomerID,
		Method:         r.Method,
		Amount:         r.Amount,
		Status:         r.Status,
		TxID:           r.TxID,
		ChargeID:       r.ChargeID,
		PaymentURL:     r.PaymentURL,
		CreatedAt:      created,
	}
}

// CreateOrder inserts a pending order row. The idempotency key column
// carries a unique constraint upstream, so a second insert for the
// same logical checkout comes back as 409 and is surfaced as
// ErrDuplicate before any second charge could be created.
func (c *Client) CreateOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", req.CustomerID))

	body, status, err := c.doPost(ctx, "orders", map[string]any{
		"idempotency_key": req.IdempotencyKey,
		"customer_id":     req.CustomerID,
		"method":          req.Method,
		"amount":          req.Amount,
		"status":          domain.OrderStatusPending,
	})
	if err != nil {
		if status == http.StatusConflict {
			return nil, &domain.ErrDuplicate{Key: req.IdempotencyKey}
		}
		return nil, &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}

	var rows []orderRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrExternalService{Service: "supabase/orders", Err: fmt.Errorf("insert returned no rows")}
	}

	order := rows[0].toDomain()
	c.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("method", order.Method),
		zap.String("amount", order.Amount),
	)
	return &order, nil
}

// AttachCharge persists the gateway-assigned identifiers on the order
// row. Called immediately after the gateway returns, before anything
// else happens, so the charge is never untracked.
func (c *Client) AttachCharge(ctx context.Context, orderID string, txid string, chargeID int64, paymentURL, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.AttachCharge")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	updates := map[string]any{"status": status}
	if txid != "" {
		updates["txid"] = txid
	}
	if chargeID != 0 {
		updates["charge_id"] = chargeID
	}
	if paymentURL != "" {
		updates["payment_url"] = paymentURL
	}

	path := fmt.Sprintf("orders?id=eq.%s", url.QueryEscape(orderID))
	body, err := c.doPatch(ctx, path, updates)
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}
	if len(body) == 0 || string(body) == "[]" {
		return &domain.ErrNotFound{Resource: "order", ID: orderID}
	}
	return nil
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var order *domain.Order

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("orders?id=eq.%s&limit=1", url.QueryEscape(orderID))
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "order", ID: orderID}
			}

			var rows []orderRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode order: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "order", ID: orderID}
			}

			o := rows[0].toDomain()
			order = &o
			return nil
		})
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}

	return order, nil
}

// UpdateOrderStatus moves an order to a new status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateOrderStatus")
	defer span.End()

	path := fmt.Sprintf("orders?id=eq.%s", url.QueryEscape(orderID))
	body, err := c.doPatch(ctx, path, map[string]any{"status": status})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}
	if len(body) == 0 || string(body) == "[]" {
		return &domain.ErrNotFound{Resource: "order", ID: orderID}
	}

	c.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", status),
	)
	return nil
}

// ListOrders returns a customer's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOrders")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var orders []domain.Order

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			offset := (page - 1) * pageSize
			path := fmt.Sprintf("orders?customer_id=eq.%s&order=created_at.desc&limit=%d&offset=%d",
				url.QueryEscape(customerID), pageSize, offset)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				orders = []domain.Order{}
				return nil
			}

			var rows []orderRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode orders: %w", err)
			}

			orders = make([]domain.Order, 0, len(rows))
			for i := range rows {
				orders = append(orders, rows[i].toDomain())
			}
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}

	return orders, nil
}
