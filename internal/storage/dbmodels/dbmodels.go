package dbmodels

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string
	Login        string
	PasswordHash string
	Role         string
	Status       string
	Balance      decimal.Decimal
	RegisteredAt time.Time
}

type Order struct {
	ID                string
	UserID            string
	ItemName          string
	Price             decimal.Decimal
	Status            string
	ArticleText       sql.NullString
	AttachmentName    sql.NullString
	AttachmentData    sql.NullString
	SubmissionMessage sql.NullString
	CompletionMessage sql.NullString
	CompletionLink    sql.NullString
	CompletedAt       sql.NullTime
	CreatedAt         time.Time
}

type FundRequest struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	Status      string
	AdminNotes  sql.NullString
	ProcessedBy sql.NullString
	ProcessedAt sql.NullTime
	CreatedAt   time.Time
}

type Website struct {
	ID              string
	Domain          string
	Category        string
	Price           decimal.Decimal
	DomainAuthority int
	MonthlyTraffic  int
	Status          string
	CreatedAt       time.Time
}

type BlogPost struct {
	ID        string
	Title     string
	Slug      string
	Body      string
	Author    string
	Published bool
	CreatedAt time.Time
}

type Review struct {
	ID        string
	WebsiteID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}
