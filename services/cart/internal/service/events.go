package service

// CartItemChanged carries the line's quantity after the change; zero means
// the line is gone.
type CartItemChanged struct {
	UserID   uint   `json:"user_id"`
	BookID   uint   `json:"book_id"`
	Quantity uint   `json:"quantity"`
	Format   string `json:"format"`
}

func (CartItemChanged) EventType() string { return "cart_item_changed" }

type CartCleared struct {
	UserID  uint  `json:"user_id"`
	Removed int64 `json:"removed"`
}

func (CartCleared) EventType() string { return "cart_cleared" }
