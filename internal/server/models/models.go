package models

import (
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/domain/orders"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/domain/websites"
	"github.com/shopspring/decimal"
)

// ListResponse is the pagination envelope every list endpoint returns.
type ListResponse struct {
	Data  any `json:"data"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type UserRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID           string     `json:"id"`
	Login        string     `json:"login"`
	Role         users.Role `json:"role"`
	Status       string     `json:"status"`
	Balance      float64    `json:"balance"`
	RegisteredAt string     `json:"registered_at"`
}

type UserBalanceResponse struct {
	Balance float64 `json:"balance"`
}

type UserStatusRequest struct {
	Status string `json:"status"`
}

type OrderCreateRequest struct {
	ItemName string          `json:"item_name"`
	Price    decimal.Decimal `json:"price"`
}

type OrderSubmissionRequest struct {
	ArticleText    string `json:"article_text,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`
	AttachmentData string `json:"attachment_data,omitempty"`
	Message        string `json:"message,omitempty"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type OrderCompleteRequest struct {
	Message string `json:"message,omitempty"`
	Link    string `json:"link,omitempty"`
}

type OrderResponse struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	ItemName          string        `json:"item_name"`
	Price             float64       `json:"price"`
	Status            orders.Status `json:"status"`
	CompletionMessage string        `json:"completion_message,omitempty"`
	CompletionLink    string        `json:"completion_link,omitempty"`
	CompletedAt       string        `json:"completed_at,omitempty"`
	CreatedAt         string        `json:"created_at"`
}

type FundRequestCreateRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type FundRequestRejectRequest struct {
	AdminNotes string `json:"admin_notes,omitempty"`
}

type FundRequestResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Amount      float64             `json:"amount"`
	Status      fundrequests.Status `json:"status"`
	AdminNotes  string              `json:"admin_notes,omitempty"`
	ProcessedBy string              `json:"processed_by,omitempty"`
	ProcessedAt string              `json:"processed_at,omitempty"`
	CreatedAt   string              `json:"created_at"`
}

type WebsiteCreateRequest struct {
	Domain          string          `json:"domain"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	DomainAuthority int             `json:"domain_authority"`
	MonthlyTraffic  int             `json:"monthly_traffic"`
}

type WebsiteStatusRequest struct {
	Status string `json:"status"`
}

type WebsiteResponse struct {
	ID              string          `json:"id"`
	Domain          string          `json:"domain"`
	Category        string          `json:"category"`
	Price           float64         `json:"price"`
	DomainAuthority int             `json:"domain_authority"`
	MonthlyTraffic  int             `json:"monthly_traffic"`
	Status          websites.Status `json:"status"`
	CreatedAt       string          `json:"created_at"`
}

type BlogPostCreateRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

type BlogPostResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Body      string `json:"body"`
	Author    string `json:"author"`
	Published bool   `json:"published"`
	CreatedAt string `json:"created_at"`
}

type ReviewCreateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type ReviewResponse struct {
	ID        string `json:"id"`
	WebsiteID string `json:"website_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

type AdminStatsResponse struct {
	TotalUsers          int             `json:"total_users"`
	ActiveUsers         int             `json:"active_users"`
	TotalWebsites       int             `json:"total_websites"`
	ActiveWebsites      int             `json:"active_websites"`
	TotalOrders         int             `json:"total_orders"`
	OrdersByStatus      map[string]int  `json:"orders_by_status"`
	CompletedRevenue    float64         `json:"completed_revenue"`
	PendingFundRequests int             `json:"pending_fund_requests"`
	PaidFundsTotal      float64         `json:"paid_funds_total"`
	RecentOrders        []OrderResponse `json:"recent_orders"`
}
