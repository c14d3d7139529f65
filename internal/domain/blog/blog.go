package blog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTitleEmpty = errors.New("blog post title is empty")
	ErrBodyEmpty  = errors.New("blog post body is empty")
)

type Post struct {
	ID        string
	Title     string
	Slug      string
	Body      string
	Author    string
	Published bool
	CreatedAt time.Time
}

func NewPost(title, body, author string, published bool) (*Post, error) {
	if title == "" {
		return nil, ErrTitleEmpty
	}

	if body == "" {
		return nil, ErrBodyEmpty
	}

	return &Post{
		ID:        uuid.NewString(),
		Title:     title,
		Slug:      Slugify(title),
		Body:      body,
		Author:    author,
		Published: published,
		CreatedAt: time.Now(),
	}, nil
}

// Slugify lowercases the title and collapses non-alphanumeric runs into
// single hyphens.
func Slugify(title string) string {
	var b strings.Builder

	lastHyphen := true

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)

			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')

			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
