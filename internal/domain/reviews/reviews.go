package reviews

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWebsiteIDEmpty   = errors.New("review website id is empty")
	ErrUserIDEmpty      = errors.New("review user id is empty")
	ErrRatingOutOfRange = errors.New("review rating must be between 1 and 5")
)

type Review struct {
	ID        string
	WebsiteID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func NewReview(websiteID, userID string, rating int, comment string) (*Review, error) {
	if websiteID == "" {
		return nil, ErrWebsiteIDEmpty
	}

	if userID == "" {
		return nil, ErrUserIDEmpty
	}

	if rating < 1 || rating > 5 {
		return nil, ErrRatingOutOfRange
	}

	return &Review{
		ID:        uuid.NewString(),
		WebsiteID: websiteID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}, nil
}
