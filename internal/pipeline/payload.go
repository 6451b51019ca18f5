package pipeline

import (
	"time"

	"chat-sentinel-bot/internal/platform"
)

type Payload struct {
	RoomID              int64
	MessageID           int64
	Sender              platform.User
	Text                string
	HasLinkEntity       bool
	ForwardedFromPublic bool
	SentAt              time.Time
	// Edited marks a message-edit event; only a reduced set of filters
	// applies to those.
	Edited bool
}

func FromMessage(msg platform.Message, edited bool) Payload {
	return Payload{
		RoomID:              msg.RoomID,
		MessageID:           msg.ID,
		Sender:              msg.Sender,
		Text:                msg.Text,
		HasLinkEntity:       msg.HasLinkEntity,
		ForwardedFromPublic: msg.ForwardedFromPublic,
		SentAt:              msg.SentAt,
		Edited:              edited,
	}
}
