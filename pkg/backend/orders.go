package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/datx24/storefront/pkg/models"
)

// CreateGuestOrder submits a checkout. A {"success": false} answer is returned as a
// response, not an error, whatever the HTTP status.
func (c *Client) CreateGuestOrder(ctx context.Context, order models.GuestOrderRequest) (*models.GuestOrderResponse, error) {
	var resp models.GuestOrderResponse
	err := c.sendJSON(ctx, http.MethodPost, "/guest-orders", order, &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Message != "" {
		return &models.GuestOrderResponse{Success: false, Message: apiErr.Message}, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListOrders(ctx context.Context, q models.OrderQuery) (*models.OrderPage, error) {
	query := url.Values{}
	if q.Status != "" {
		query.Set("status", q.Status)
	}
	if q.StartDate != "" {
		query.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		query.Set("end_date", q.EndDate)
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}

	var raw json.RawMessage
	if err := c.getJSON(ctx, "/admin/orders", query, &raw); err != nil {
		return nil, err
	}

	// either the paginator itself or {"success": true, "data": paginator}
	var page models.OrderPage
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && env.Data[0] == '{' {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode orders page: %w", err)
	}
	return &page, nil
}

func (c *Client) Order(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := c.getResource(ctx, fmt.Sprintf("/admin/orders/%d", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	body := map[string]string{"status": status}
	return c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", id), body, nil)
}
