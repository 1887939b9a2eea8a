// Package admin holds the back-office rules applied before calls reach the
// backend: required names, the order status workflow and dashboard statistics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/datx24/storefront/pkg/backend"
	"github.com/datx24/storefront/pkg/models"
	"github.com/datx24/storefront/pkg/stats"
)

var ErrNameRequired = errors.New("name is required")

// TransitionError reports a status change the workflow does not allow
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

var transitions = map[string][]string{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusShipping, models.StatusCancelled},
	models.StatusShipping:  {models.StatusCompleted},
}

// CanTransition reports whether an order in status from may move to status to
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from status
func NextStatuses(status string) []string {
	return append([]string(nil), transitions[status]...)
}

func IsKnownStatus(status string) bool {
	for _, s := range models.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Backend is the subset of backend.Client used by the back office
type Backend interface {
	CreateCategory(ctx context.Context, in backend.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, in backend.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	Attributes(ctx context.Context) ([]models.Attribute, error)
	CreateAttribute(ctx context.Context, in backend.AttributeInput) (*models.Attribute, error)
	UpdateAttribute(ctx context.Context, id int64, in backend.AttributeInput) (*models.Attribute, error)
	DeleteAttribute(ctx context.Context, id int64) error
	CreateProduct(ctx context.Context, form *backend.ProductForm) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, form *backend.ProductForm) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListOrders(ctx context.Context, q models.OrderQuery) (*models.OrderPage, error)
	Order(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
}

type Service struct {
	backend  Backend
	location *time.Location
	now      func() time.Time
}

func NewService(b Backend, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{backend: b, location: loc, now: time.Now}
}

func (s *Service) CreateCategory(ctx context.Context, in backend.CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	return s.backend.CreateCategory(ctx, in)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in backend.CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	return s.backend.UpdateCategory(ctx, id, in)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.backend.DeleteCategory(ctx, id)
}

func (s *Service) Attributes(ctx context.Context) ([]models.Attribute, error) {
	return s.backend.Attributes(ctx)
}

func (s *Service) CreateAttribute(ctx context.Context, in backend.AttributeInput) (*models.Attribute, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	return s.backend.CreateAttribute(ctx, in)
}

func (s *Service) UpdateAttribute(ctx context.Context, id int64, in backend.AttributeInput) (*models.Attribute, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	return s.backend.UpdateAttribute(ctx, id, in)
}

func (s *Service) DeleteAttribute(ctx context.Context, id int64) error {
	return s.backend.DeleteAttribute(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, form *backend.ProductForm) (*models.Product, error) {
	if err := checkProductName(form); err != nil {
		return nil, err
	}
	return s.backend.CreateProduct(ctx, form)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, form *backend.ProductForm) (*models.Product, error) {
	if err := checkProductName(form); err != nil {
		return nil, err
	}
	return s.backend.UpdateProduct(ctx, id, form)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.backend.DeleteProduct(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, q models.OrderQuery) (*models.OrderPage, error) {
	return s.backend.ListOrders(ctx, q)
}

// UpdateOrderStatus moves an order along the workflow. The current status is read
// back from the backend first so a stale admin screen cannot skip a step.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	if !IsKnownStatus(status) {
		return nil, &TransitionError{From: "", To: status}
	}

	order, err := s.backend.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, status) {
		return nil, &TransitionError{From: order.Status, To: status}
	}

	if err := s.backend.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

// Statistics pages through every order and aggregates the ones inside the window
func (s *Service) Statistics(ctx context.Context, startDate, endDate string) (*stats.Statistics, error) {
	window, err := stats.ParseRange(startDate, endDate, s.location, s.now())
	if err != nil {
		return nil, &RangeError{Err: err}
	}

	orders, err := stats.CollectAll(ctx, s.backend, models.OrderQuery{
		StartDate: window.Start.Format("2006-01-02"),
		EndDate:   window.End.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}
	return stats.Compute(orders, window, stats.DefaultRecentLimit), nil
}

// RangeError wraps a malformed statistics date range
type RangeError struct {
	Err error
}

func (e *RangeError) Error() string { return e.Err.Error() }
func (e *RangeError) Unwrap() error { return e.Err }

func checkProductName(form *backend.ProductForm) error {
	if form == nil || strings.TrimSpace(form.Value("name")) == "" {
		return ErrNameRequired
	}
	form.Fields["name"] = []string{strings.TrimSpace(form.Value("name"))}
	return nil
}
