package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	order, err := CreateOrder("user-1", "guest post on example.com", decimal.NewFromInt(120))
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID())
	assert.Equal(t, "user-1", order.UserID())
	assert.Equal(t, StatusPending, order.Status())
	assert.False(t, order.CreatedAt().IsZero())
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		itemName string
		price    decimal.Decimal
		wantErr  error
	}{
		{
			name:     "empty user id",
			userID:   "",
			itemName: "item",
			price:    decimal.NewFromInt(10),
			wantErr:  ErrOrderUserIDEmpty,
		},
		{
			name:     "empty item name",
			userID:   "user-1",
			itemName: "",
			price:    decimal.NewFromInt(10),
			wantErr:  ErrOrderItemNameEmpty,
		},
		{
			name:     "negative price",
			userID:   "user-1",
			itemName: "item",
			price:    decimal.NewFromInt(-1),
			wantErr:  ErrOrderPriceNegative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateOrder(tt.userID, tt.itemName, tt.price)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusFailed, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransitionSources(t *testing.T) {
	assert.ElementsMatch(t, []Status{StatusProcessing}, TransitionSources(StatusCompleted))
	assert.ElementsMatch(t, []Status{StatusPending, StatusProcessing}, TransitionSources(StatusFailed))
	assert.Empty(t, TransitionSources(StatusPending))
}

func TestCompleteOnlyFromProcessing(t *testing.T) {
	order, err := CreateOrder("user-1", "item", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = order.Complete("done", "https://example.com/post")
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.Equal(t, StatusPending, order.Status())

	require.NoError(t, order.SetStatus(StatusProcessing))
	require.NoError(t, order.Complete("done", "https://example.com/post"))

	assert.Equal(t, StatusCompleted, order.Status())
	assert.Equal(t, "done", order.Completion().Message)
	assert.Equal(t, "https://example.com/post", order.Completion().Link)
	assert.False(t, order.Completion().CompletedAt.IsZero())

	// A second completion must fail.
	assert.ErrorIs(t, order.Complete("again", ""), ErrTransitionNotAllowed)
}

func TestSetSubmission(t *testing.T) {
	order, err := CreateOrder("user-1", "item", decimal.NewFromInt(10))
	require.NoError(t, err)

	submission := Submission{
		ArticleText:    "article body",
		AttachmentName: "draft.docx",
		AttachmentData: "ZHJhZnQ=",
		Message:        "please review",
	}

	require.NoError(t, order.SetSubmission(submission))
	assert.Equal(t, submission, order.Submission())

	require.NoError(t, order.SetStatus(StatusProcessing))
	require.NoError(t, order.SetSubmission(submission))

	require.NoError(t, order.Complete("", ""))
	assert.ErrorIs(t, order.SetSubmission(submission), ErrSubmissionClosed)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("processing")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)

	_, err = ParseStatus("unknown")
	assert.ErrorIs(t, err, ErrOrderStatusUnknown)
}
