package models

// MaxCartQuantity caps one cart line so that line and cart totals stay in int64
const MaxCartQuantity = 999

// CartLine is one product in a shopper's cart. Name, Price and Image are captured
// when the product is added and are not refreshed from the catalog afterwards.
type CartLine struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
}

func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

// CartSummary is the checkout quote shown to the shopper
type CartSummary struct {
	Lines       []CartLine `json:"lines"`
	ItemCount   int        `json:"item_count"`
	Subtotal    int64      `json:"subtotal"`
	ShippingFee int64      `json:"shipping_fee"`
	Total       int64      `json:"total"`
}

type AddToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"omitempty,max=999"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=999"`
}
