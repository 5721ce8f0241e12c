package domain

import (
	"time"
)

// MaxPageSize is the largest page the commerce API serves
const MaxPageSize = 250

// ProductStatus filters the upstream product list
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
	ProductStatusDraft    ProductStatus = "draft"
)

// ProductQuery represents product list parameters. Out-of-range page and
// limit values are clamped rather than rejected.
type ProductQuery struct {
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
	Status ProductStatus `json:"status" validate:"omitempty,oneof=active archived draft"`
}

// Product is the reduced projection of an upstream product
type Product struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	ProductType string           `json:"product_type"`
	Status      string           `json:"status"`
	Images      []ProductImage   `json:"images"`
	Variants    []ProductVariant `json:"variants"`
	CreatedAt   *time.Time       `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at"`
}

// ProductImage is the reduced projection of a product image
type ProductImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// ProductVariant is the reduced projection of a product variant
type ProductVariant struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	// Price is the upstream decimal text, unchanged
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// Pagination summarizes a product page
type Pagination struct {
	CurrentPage   int `json:"current_page"`
	TotalPages    int `json:"total_pages"`
	TotalProducts int `json:"total_products"`
}

// ProductPage is a page of products with its pagination summary
type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}
