package repository

import (
	"time"

	"github.com/lib/pq"
)

// Word list kinds. Content words match message text, bio words match profile
// descriptions, nick words match display names. Nick rules are stored with
// RoomID 0 and apply everywhere.
const (
	WordKindContent = "content"
	WordKindBio     = "bio"
	WordKindNick    = "nick"
)

// GlobalScope is the RoomID value of rules that apply in every room.
const GlobalScope int64 = 0

type RoomSettings struct {
	RoomID         int64          `gorm:"primaryKey;autoIncrement:false"`
	LinkBanEnabled bool           `gorm:"default:true"`
	CaptchaEnabled bool           `gorm:"default:false"`
	Active         bool           `gorm:"default:true"`
	AllowedDomains pq.StringArray `gorm:"type:text[]"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BanWord struct {
	ID        uint   `gorm:"primaryKey"`
	RoomID    int64  `gorm:"index:idx_ban_words_scope,unique,priority:1"`
	Kind      string `gorm:"size:16;index:idx_ban_words_scope,unique,priority:2"`
	Word      string `gorm:"size:255;index:idx_ban_words_scope,unique,priority:3"`
	AddedBy   int64
	CreatedAt time.Time
}

type GlobalBan struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Reason    string `gorm:"size:512"`
	AdminID   int64
	Active    bool `gorm:"default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BannedAvatar struct {
	ID        uint   `gorm:"primaryKey"`
	ContentID string `gorm:"size:255;uniqueIndex"`
	Hash      string `gorm:"size:16"`
	AddedBy   int64
	CreatedAt time.Time
}

type KnownMember struct {
	ID               uint   `gorm:"primaryKey"`
	RoomID           int64  `gorm:"index:idx_known_members_room_user,unique,priority:1"`
	UserID           int64  `gorm:"index:idx_known_members_room_user,unique,priority:2"`
	Username         string `gorm:"size:255"`
	FirstName        string `gorm:"size:255"`
	LastName         string `gorm:"size:255"`
	IsMember         bool   `gorm:"default:true"`
	ProfileCheckedAt *time.Time
	LastSeenAt       time.Time
	CreatedAt        time.Time
}

// RoomAccess roles.
const (
	RoleAdmin     = "admin"
	RoleWhitelist = "whitelist"
)

type RoomAccess struct {
	ID        uint   `gorm:"primaryKey"`
	RoomID    int64  `gorm:"index:idx_room_access,unique,priority:1"`
	UserID    int64  `gorm:"index:idx_room_access,unique,priority:2"`
	Role      string `gorm:"size:16;index:idx_room_access,unique,priority:3"`
	CreatedAt time.Time
}

// ModerationLog is the append-only audit trail; the daily report aggregates it.
type ModerationLog struct {
	ID        int64     `gorm:"primaryKey"`
	RoomID    *int64    `gorm:"index"`
	UserID    int64     `gorm:"index"`
	Action    string    `gorm:"size:32;index"`
	ActorID   int64
	Reason    string    `gorm:"size:512"`
	Duration  string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"index"`
}

// WarningState is the persisted snapshot of the in-memory warning counters.
type WarningState struct {
	RoomID        int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Warnings      int   `gorm:"default:0"`
	ZalgoWarnings int   `gorm:"default:0"`
	MimicWarnings int   `gorm:"default:0"`
	UpdatedAt     time.Time
}
