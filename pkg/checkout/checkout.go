// Package checkout turns a session cart into a guest order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/datx24/storefront/pkg/cart"
	"github.com/datx24/storefront/pkg/models"
)

var ErrEmptyCart = errors.New("cart is empty")

// RejectedError is the backend refusing the order ({"success": false})
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "order rejected"
	}
	return "order rejected: " + e.Message
}

// FieldError is one failed form rule
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError lists every invalid form field
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid checkout form: " + strings.Join(names, ", ")
}

// IsValidation helps callers tell form errors from backend failures
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Form is what the shopper fills in on the checkout page
type Form struct {
	CustomerName   string `json:"customer_name" validate:"required,max=100"`
	CustomerPhone  string `json:"customer_phone" validate:"required,vnphone"`
	CustomerEmail  string `json:"customer_email" validate:"omitempty,email"`
	CustomerGender string `json:"customer_gender" validate:"required,oneof=male female other"`
	Province       string `json:"province" validate:"required"`
	District       string `json:"district" validate:"required"`
	Ward           string `json:"ward" validate:"required"`
	Street         string `json:"street" validate:"required,max=255"`
	Note           string `json:"note" validate:"max=1000"`
	NeedInvoice    bool   `json:"need_invoice"`
	PaymentMethod  string `json:"payment_method" validate:"required,oneof=cod bank_transfer"`
}

// OrderSubmitter is the backend endpoint that records guest orders
type OrderSubmitter interface {
	CreateGuestOrder(ctx context.Context, order models.GuestOrderRequest) (*models.GuestOrderResponse, error)
}

type Result struct {
	OrderCode string              `json:"order_code"`
	Summary   *models.CartSummary `json:"summary"`
}

type Service struct {
	carts    *cart.Service
	orders   OrderSubmitter
	validate *validator.Validate
}

func NewService(carts *cart.Service, orders OrderSubmitter) *Service {
	return &Service{
		carts:    carts,
		orders:   orders,
		validate: newValidator(),
	}
}

// Quote is the amount the shopper is shown before confirming
func (s *Service) Quote(ctx context.Context, sessionID string) (*models.CartSummary, error) {
	return s.carts.Summary(ctx, sessionID)
}

func (s *Service) Validate(form *Form) error {
	form.normalize()
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// Submit validates the form, posts the order and clears the cart once the backend
// confirms it. A rejected order leaves the cart as it was.
func (s *Service) Submit(ctx context.Context, sessionID string, form Form) (*Result, error) {
	if err := s.Validate(&form); err != nil {
		return nil, err
	}

	summary, err := s.carts.Summary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(summary.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	req := models.GuestOrderRequest{
		CustomerName:   form.CustomerName,
		CustomerPhone:  form.CustomerPhone,
		CustomerEmail:  form.CustomerEmail,
		CustomerGender: form.CustomerGender,
		Province:       form.Province,
		District:       form.District,
		Ward:           form.Ward,
		Street:         form.Street,
		Note:           form.Note,
		NeedInvoice:    form.NeedInvoice,
		PaymentMethod:  form.PaymentMethod,
		Items:          make([]models.GuestOrderItem, len(summary.Lines)),
	}
	for i, l := range summary.Lines {
		req.Items[i] = models.GuestOrderItem{ProductID: l.ProductID, Quantity: l.Quantity}
	}

	resp, err := s.orders.CreateGuestOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	if !resp.Success {
		return nil, &RejectedError{Message: resp.Message}
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		// the order exists, the shopper must not be told it failed
		log.Printf("Warning: order %s placed but cart for session %s not cleared: %v", resp.Order.Code, sessionID, err)
	}

	return &Result{OrderCode: resp.Order.Code, Summary: summary}, nil
}

func (f *Form) normalize() {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.CustomerPhone = strings.ReplaceAll(strings.TrimSpace(f.CustomerPhone), " ", "")
	f.CustomerEmail = strings.TrimSpace(f.CustomerEmail)
	f.Province = strings.TrimSpace(f.Province)
	f.District = strings.TrimSpace(f.District)
	f.Ward = strings.TrimSpace(f.Ward)
	f.Street = strings.TrimSpace(f.Street)
	f.Note = strings.TrimSpace(f.Note)
}
