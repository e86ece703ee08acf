package gateway

import "context"

// Update mirrors the subset of a Telegram Bot API update the bot reads.
// Any pointer may be nil on the wire; the command parser rejects such updates.
type Update struct {
	ID      int64    `json:"update_id"`
	Message *Message `json:"message,omitempty"`
}

type Message struct {
	From *User  `json:"from,omitempty"`
	Chat *Chat  `json:"chat,omitempty"`
	Text string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// Gateway is the messaging channel. Delivery is at-least-once and ordered by
// update id.
type Gateway interface {
	// FetchUpdates returns updates with ID > offset. A non-ok reply is a
	// *domain.TransientNetworkError.
	FetchUpdates(ctx context.Context, offset int64) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
	Close() error
}

// MaxID returns the highest update id in the batch, or 0 for an empty batch.
func MaxID(updates []Update) int64 {
	var m int64
	for _, u := range updates {
		if u.ID > m {
			m = u.ID
		}
	}
	return m
}
