package botapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"chat-sentinel-bot/internal/platform"
)

const (
	pollTimeout   = 50 * time.Second
	pollRetryWait = 3 * time.Second
	updateBuffer  = 100
)

type wireUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

func (u wireUser) toPlatform() platform.User {
	return platform.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}

type wireChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type wireEntity struct {
	Type string `json:"type"`
}

type wireOrigin struct {
	Type       string    `json:"type"`
	SenderChat *wireChat `json:"sender_chat"`
}

// isPublicSource reports whether the forward came from a broadcast-style
// source. Channels always qualify; chat origins qualify when the sending chat
// is a supergroup.
func (o *wireOrigin) isPublicSource() bool {
	if o.Type == "channel" {
		return true
	}
	return o.Type == "chat" && o.SenderChat != nil && o.SenderChat.Type == "supergroup"
}

type wireMessage struct {
	MessageID     int64        `json:"message_id"`
	From          wireUser     `json:"from"`
	Chat          wireChat     `json:"chat"`
	Date          int64        `json:"date"`
	Text          string       `json:"text"`
	Caption       string       `json:"caption"`
	Entities      []wireEntity `json:"entities"`
	ReplyTo       *wireMessage `json:"reply_to_message"`
	ForwardOrigin *wireOrigin  `json:"forward_origin"`
}

func (m *wireMessage) toPlatform() platform.Message {
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	msg := platform.Message{
		ID:                  m.MessageID,
		RoomID:              m.Chat.ID,
		Sender:              m.From.toPlatform(),
		Text:                text,
		ForwardedFromPublic: m.ForwardOrigin != nil && m.ForwardOrigin.isPublicSource(),
		SentAt:              time.Unix(m.Date, 0),
	}
	for _, e := range m.Entities {
		if e.Type == "url" || e.Type == "text_link" {
			msg.HasLinkEntity = true
			break
		}
	}
	if m.ReplyTo != nil {
		sender := m.ReplyTo.From.toPlatform()
		msg.ReplyTo = &sender
	}
	return msg
}

type wireChatMember struct {
	User              wireUser `json:"user"`
	Status            string   `json:"status"`
	CanSendMessages   *bool    `json:"can_send_messages"`
	CanSendMedia      *bool    `json:"can_send_media_messages"`
	CanRestrictMember bool     `json:"can_restrict_members"`
}

func (m wireChatMember) toPlatform() *platform.Member {
	member := &platform.Member{
		User:            m.User.toPlatform(),
		Status:          platform.MemberStatus(m.Status),
		CanSendMessages: true,
		CanSendMedia:    true,
		CanRestrict:     m.CanRestrictMember,
	}
	if m.CanSendMessages != nil {
		member.CanSendMessages = *m.CanSendMessages
	}
	if m.CanSendMedia != nil {
		member.CanSendMedia = *m.CanSendMedia
	}
	return member
}

type wireMemberUpdate struct {
	Chat wireChat       `json:"chat"`
	Old  wireChatMember `json:"old_chat_member"`
	New  wireChatMember `json:"new_chat_member"`
}

type wireCallback struct {
	ID      string       `json:"id"`
	From    wireUser     `json:"from"`
	Message *wireMessage `json:"message"`
	Data    string       `json:"data"`
}

type wireUpdate struct {
	UpdateID      int64             `json:"update_id"`
	Message       *wireMessage      `json:"message"`
	EditedMessage *wireMessage      `json:"edited_message"`
	ChatMember    *wireMemberUpdate `json:"chat_member"`
	CallbackQuery *wireCallback     `json:"callback_query"`
}

// ParseUpdate converts one raw update into the engine's event type. Returns
// nil for update kinds the engine does not consume.
func ParseUpdate(raw []byte) (platform.Update, error) {
	var upd wireUpdate
	if err := json.Unmarshal(raw, &upd); err != nil {
		return nil, err
	}
	return upd.toPlatform(), nil
}

func (u *wireUpdate) toPlatform() platform.Update {
	switch {
	case u.Message != nil:
		return platform.MessageCreated{Message: u.Message.toPlatform()}
	case u.EditedMessage != nil:
		return platform.MessageEdited{Message: u.EditedMessage.toPlatform()}
	case u.ChatMember != nil:
		return platform.MemberUpdated{
			RoomID:    u.ChatMember.Chat.ID,
			User:      u.ChatMember.New.User.toPlatform(),
			OldUser:   u.ChatMember.Old.User.toPlatform(),
			OldStatus: platform.MemberStatus(u.ChatMember.Old.Status),
			NewStatus: platform.MemberStatus(u.ChatMember.New.Status),
		}
	case u.CallbackQuery != nil:
		cb := platform.CallbackPressed{
			CallbackID: u.CallbackQuery.ID,
			From:       u.CallbackQuery.From.toPlatform(),
			Data:       u.CallbackQuery.Data,
		}
		if u.CallbackQuery.Message != nil {
			cb.RoomID = u.CallbackQuery.Message.Chat.ID
			cb.MessageID = u.CallbackQuery.Message.MessageID
		}
		return cb
	}
	return nil
}

// Updates long-polls the API until ctx is cancelled. Implements
// platform.Source.
func (c *Client) Updates(ctx context.Context) <-chan platform.Update {
	out := make(chan platform.Update, updateBuffer)

	go func() {
		defer close(out)
		var offset int64
		for {
			if ctx.Err() != nil {
				return
			}
			batch, err := c.getUpdates(ctx, offset)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("Failed to fetch updates", "error", err)
				select {
				case <-time.After(pollRetryWait):
				case <-ctx.Done():
					return
				}
				continue
			}
			for _, raw := range batch {
				var upd wireUpdate
				if err := json.Unmarshal(raw, &upd); err != nil {
					c.logger.Error("Failed to decode update", "error", err)
					continue
				}
				if upd.UpdateID >= offset {
					offset = upd.UpdateID + 1
				}
				if ev := upd.toPlatform(); ev != nil {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}

func (c *Client) getUpdates(ctx context.Context, offset int64) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(int(pollTimeout.Seconds())))
	params.Set("allowed_updates", `["message","edited_message","chat_member","callback_query"]`)

	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout+callTimeout)
	defer cancel()

	var batch []json.RawMessage
	if err := c.call(pollCtx, "getUpdates", params, &batch); err != nil {
		return nil, err
	}
	return batch, nil
}
