package transport

import "github.com/Skotchmaster/bookstore/services/cart/internal/models"

type AddToCartRequest struct {
	BookID   uint   `json:"book_id"`
	Quantity uint   `json:"quantity"`
	Format   string `json:"format"`
}

type SetQuantityRequest struct {
	Quantity *uint `json:"quantity"`
}

type CartResponse struct {
	Items     []models.CartLine `json:"items"`
	ItemCount uint              `json:"item_count"`
	Subtotal  float64           `json:"subtotal"`
}

type DeleteOneFromCartResponse struct {
	BookID   uint `json:"book_id"`
	Deleted  bool `json:"deleted"`
	Quantity uint `json:"quantity"`
}

type ClearCartResponse struct {
	Removed int64 `json:"removed"`
}
