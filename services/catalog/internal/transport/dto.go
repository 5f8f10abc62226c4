package transport

type CreateBookRequest struct {
	Title             string  `json:"title"`
	AuthorName        string  `json:"author_name"`
	Description       string  `json:"description"`
	ISBN              string  `json:"isbn"`
	Price             float64 `json:"price"`
	Format            string  `json:"format"`
	StockQuantity     int     `json:"stock_quantity"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	IsActive          *bool   `json:"is_active"`
}

type PatchBookRequest struct {
	Title             *string  `json:"title"`
	AuthorName        *string  `json:"author_name"`
	Description       *string  `json:"description"`
	ISBN              *string  `json:"isbn"`
	Price             *float64 `json:"price"`
	Format            *string  `json:"format"`
	StockQuantity     *int     `json:"stock_quantity"`
	LowStockThreshold *int     `json:"low_stock_threshold"`
	IsActive          *bool    `json:"is_active"`
}

type ReindexResponse struct {
	Indexed int `json:"indexed"`
}
