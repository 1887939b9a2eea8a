package models

// Order statuses of the back-office workflow
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipping  = "shipping"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var OrderStatuses = []string{StatusPending, StatusConfirmed, StatusShipping, StatusCompleted, StatusCancelled}

// Payment methods offered at checkout; none are processed online
const (
	PaymentCOD          = "cod"
	PaymentBankTransfer = "bank_transfer"
)

type OrderItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
	Price       Price  `json:"price,omitempty"`
}

// Order is the admin view of a placed order
type Order struct {
	ID            int64       `json:"id"`
	Code          string      `json:"code"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	Province      string      `json:"province,omitempty"`
	District      string      `json:"district,omitempty"`
	Ward          string      `json:"ward,omitempty"`
	Street        string      `json:"street,omitempty"`
	TotalAmount   Price       `json:"total_amount"`
	ShippingFee   Price       `json:"shipping_fee,omitempty"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
	CreatedAt     Timestamp   `json:"created_at"`
}

func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// GetItemCount returns the total number of units in the order
func (o *Order) GetItemCount() int {
	var count int
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// OrderQuery filters GET /admin/orders
type OrderQuery struct {
	Status    string
	StartDate string
	EndDate   string
	Search    string
	Page      int
}

// OrderPage is one page of the admin order listing (Laravel paginator shape)
type OrderPage struct {
	Data        []Order `json:"data"`
	CurrentPage int     `json:"current_page"`
	LastPage    int     `json:"last_page"`
	PerPage     int     `json:"per_page"`
	Total       int     `json:"total"`
}

type GuestOrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// GuestOrderRequest is the body of POST /guest-orders
type GuestOrderRequest struct {
	CustomerName   string           `json:"customer_name"`
	CustomerPhone  string           `json:"customer_phone"`
	CustomerEmail  string           `json:"customer_email,omitempty"`
	CustomerGender string           `json:"customer_gender"`
	Province       string           `json:"province"`
	District       string           `json:"district"`
	Ward           string           `json:"ward"`
	Street         string           `json:"street"`
	Note           string           `json:"note,omitempty"`
	NeedInvoice    bool             `json:"need_invoice"`
	PaymentMethod  string           `json:"payment_method"`
	Items          []GuestOrderItem `json:"items"`
}

type GuestOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Order   struct {
		Code string `json:"code"`
	} `json:"order"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
