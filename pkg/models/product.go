package models

// Category as returned by GET /categories
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ProductAttribute struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product is the catalog record served by the backend
type Product struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	Description   string             `json:"description,omitempty"`
	Price         Price              `json:"price"`
	OriginalPrice *Price             `json:"original_price,omitempty"`
	Stock         int                `json:"stock"`
	Image         string             `json:"image"`
	SubImages     []string           `json:"sub_images"`
	CategoryID    int64              `json:"category_id"`
	IsNew         bool               `json:"is_new"`
	IsHot         bool               `json:"is_hot"`
	Attributes    []ProductAttribute `json:"attributes"`
}

func (p *Product) IsInStock() bool {
	return p.Stock > 0
}

// DiscountPercent returns the rounded-down markdown against the original price, 0 if none
func (p *Product) DiscountPercent() int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= p.Price || *p.OriginalPrice == 0 {
		return 0
	}
	return int((int64(*p.OriginalPrice) - int64(p.Price)) * 100 / int64(*p.OriginalPrice))
}

// Attribute is an admin-managed product attribute definition
type Attribute struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PriceRange is the full span of prices available in one category
type PriceRange struct {
	Min Price `json:"min_price"`
	Max Price `json:"max_price"`
}

type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// CategoryProductsQuery selects one page of a category listing within a price window
type CategoryProductsQuery struct {
	Slug     string
	Page     int
	MinPrice int64
	MaxPrice int64
}

type CategoryProducts struct {
	Category   Category   `json:"category"`
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}
