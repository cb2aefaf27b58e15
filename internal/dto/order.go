package dto

import "time"

type CreateOrderRequest struct {
	ShopID string             `json:"shop_id"`
	Files  []OrderFileRequest `json:"files"`
}

type OrderFileRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	Pages      int    `json:"pages"`
	PrintType  string `json:"print_type"`
	PaperSize  string `json:"paper_size"`
	Copies     int    `json:"copies"`
	Sides      string `json:"sides"`
}

type CreateOrderResponse struct {
	TraceID     string    `json:"traceId"`
	OrderID     string    `json:"order_id"`
	TotalAmount string    `json:"total_amount"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

type QuoteResponse struct {
	TraceID     string         `json:"traceId"`
	ShopID      string         `json:"shop_id"`
	Lines       []QuoteLineDTO `json:"lines"`
	TotalAmount string         `json:"total_amount"`
}

type QuoteLineDTO struct {
	FileName     string `json:"file_name"`
	PrintType    string `json:"print_type"`
	PaperSize    string `json:"paper_size"`
	Pages        int    `json:"pages"`
	Copies       int    `json:"copies"`
	PricePerPage string `json:"price_per_page"`
	LineTotal    string `json:"line_total"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateStatusResponse struct {
	TraceID   string    `json:"traceId"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderDTO struct {
	ID                 string         `json:"id"`
	CustomerID         string         `json:"customer_id"`
	ShopID             string         `json:"shop_id"`
	Status             string         `json:"status"`
	TotalAmount        string         `json:"total_amount"`
	TotalPages         int            `json:"total_pages"`
	Files              []OrderFileDTO `json:"files"`
	AllowedTransitions []string       `json:"allowed_transitions"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type OrderFileDTO struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	Pages      int    `json:"pages"`
	PrintType  string `json:"print_type"`
	PaperSize  string `json:"paper_size"`
	Copies     int    `json:"copies"`
	Sides      string `json:"sides"`
}

type OrderListResponse struct {
	TraceID string     `json:"traceId"`
	Orders  []OrderDTO `json:"orders"`
}
