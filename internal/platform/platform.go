// Package platform defines the chat-platform collaborator interface the
// moderation engine is written against. The engine never talks to a concrete
// messenger API directly; it consumes Updates and issues the primitives below
// through the Client interface.
package platform

import (
	"context"
	"time"
)

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

// DisplayName returns the best human-readable name for notices.
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return "@" + u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return "user"
	}
}

type MemberStatus string

const (
	StatusMember     MemberStatus = "member"
	StatusAdmin      MemberStatus = "administrator"
	StatusOwner      MemberStatus = "creator"
	StatusRestricted MemberStatus = "restricted"
	StatusLeft       MemberStatus = "left"
	StatusBanned     MemberStatus = "kicked"
)

// Member is the live membership record for a (room, user) pair.
type Member struct {
	User            User
	Status          MemberStatus
	CanSendMessages bool
	CanSendMedia    bool
	CanRestrict     bool
}

func (m Member) IsAdmin() bool {
	return m.Status == StatusAdmin || m.Status == StatusOwner
}

// Profile is the public profile of a user, fetched on demand for screening.
type Profile struct {
	Bio       string
	FirstName string
	LastName  string
	Username  string
}

// Avatar is the current profile photo: a platform-stable content id plus the
// raw bytes for hashing. Data may be nil when the photo could not be fetched.
type Avatar struct {
	ContentID string
	Data      []byte
}

// Permissions mirrors the restriction bitmap the platform applies to a member.
type Permissions struct {
	SendMessages bool
	SendMedia    bool
	SendOther    bool // stickers, polls, previews
	InviteUsers  bool
}

var (
	// PermsUnrestricted restores everything a normal member can do.
	PermsUnrestricted = Permissions{SendMessages: true, SendMedia: true, SendOther: true, InviteUsers: true}
	// PermsMediaRestrict allows plain text only. Applied to new members when
	// the captcha gate is off.
	PermsMediaRestrict = Permissions{SendMessages: true, InviteUsers: true}
	// PermsFullRestrict blocks all sending. Applied pending captcha and while
	// a link-in-bio decision is with the administrators.
	PermsFullRestrict = Permissions{}
)

// Action is an inline control attached to a message (captcha confirmation,
// proposal approve/reject). Data round-trips through the callback update.
type Action struct {
	Label string
	Data  string
}

// Client is the set of platform primitives the engine needs. All calls are
// slow, fallible I/O; implementations must honor ctx deadlines.
type Client interface {
	SendMessage(ctx context.Context, roomID int64, text string) (messageID int64, err error)
	SendMessageWithActions(ctx context.Context, roomID int64, text string, actions []Action) (messageID int64, err error)
	EditMessage(ctx context.Context, roomID, messageID int64, text string) error
	DeleteMessage(ctx context.Context, roomID, messageID int64) error
	DeleteMessages(ctx context.Context, roomID int64, messageIDs []int64) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error

	RestrictMember(ctx context.Context, roomID, userID int64, perms Permissions) error
	BanMember(ctx context.Context, roomID, userID int64, revokeMessages bool) error
	UnbanMember(ctx context.Context, roomID, userID int64) error
	GetMember(ctx context.Context, roomID, userID int64) (*Member, error)

	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	GetAvatar(ctx context.Context, userID int64) (*Avatar, error)

	// Self returns the bot's own user record, used for permission probes.
	Self(ctx context.Context) (*User, error)
}

// Source delivers the inbound event stream.
type Source interface {
	Updates(ctx context.Context) <-chan Update
}

// Update is the common interface of all inbound events.
type Update interface {
	UpdateType() string
}

type Message struct {
	ID     int64
	RoomID int64
	Sender User
	Text   string
	// ReplyTo is the author of the replied-to message, nil when the message
	// is not a reply. Admin commands use it to pick their target.
	ReplyTo             *User
	HasLinkEntity       bool
	ForwardedFromPublic bool
	SentAt              time.Time
}

type MessageCreated struct{ Message Message }

func (MessageCreated) UpdateType() string { return "message_created" }

type MessageEdited struct{ Message Message }

func (MessageEdited) UpdateType() string { return "message_edited" }

// MemberUpdated covers joins, leaves and profile changes of room members.
type MemberUpdated struct {
	RoomID    int64
	User      User
	OldStatus MemberStatus
	NewStatus MemberStatus
	// OldUser carries the previous name fields so profile changes can be
	// detected without extra lookups.
	OldUser User
}

func (MemberUpdated) UpdateType() string { return "member_updated" }

// Joined reports whether the transition is a fresh join.
func (m MemberUpdated) Joined() bool {
	if m.NewStatus != StatusMember {
		return false
	}
	switch m.OldStatus {
	case StatusLeft, StatusBanned, StatusRestricted, "":
		return true
	}
	return false
}

// Left reports whether the member left or was removed.
func (m MemberUpdated) Left() bool {
	return m.NewStatus == StatusLeft || m.NewStatus == StatusBanned
}

// ProfileChanged reports whether any display-name field changed.
func (m MemberUpdated) ProfileChanged() bool {
	return m.OldUser.Username != m.User.Username ||
		m.OldUser.FirstName != m.User.FirstName ||
		m.OldUser.LastName != m.User.LastName
}

// CallbackPressed is an inline-action press (captcha click, proposal vote).
type CallbackPressed struct {
	CallbackID string
	RoomID     int64
	MessageID  int64
	From       User
	Data       string
}

func (CallbackPressed) UpdateType() string { return "callback_pressed" }
