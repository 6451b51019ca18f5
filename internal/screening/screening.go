// Package screening checks member profiles: avatar against the banned-avatar
// registry (exact id, then perceptual distance), bio against the link policy
// and banned bio words, and display names against the nickname rules. A
// cooldown per user bounds the external fetch cost of repeated triggers.
package screening

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"chat-sentinel-bot/internal/avatarhash"
	"chat-sentinel-bot/internal/cooldown"
	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline/filters"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/textnorm"
)

const (
	checkAvatar  = "avatar"
	checkProfile = "profile"

	hashMemoSize = 2000
	hashMemoTTL  = 24 * time.Hour
)

// Enforcement is the slice of the enforcer the screener needs.
type Enforcement interface {
	Ban(ctx context.Context, roomID int64, user platform.User, reason, filterName string, propose bool, actorID int64)
	PurgeMessages(ctx context.Context, roomID, userID int64)
}

// LinkInBio is raised when a bio violates the link policy. The user is
// restricted, not banned; an administrator decides ban or restore.
type LinkInBio struct {
	RoomID int64
	User   platform.User
	Bio    string
}

type Screener struct {
	client    platform.Client
	words     repository.WordRepository
	avatars   repository.BannedAvatarRepository
	settings  repository.SettingsRepository
	enforcer  Enforcement
	cooldown  *cooldown.Cooldown
	hashMemo  *expirable.LRU[string, avatarhash.Hash]
	onLinkBio func(ctx context.Context, ev LinkInBio)
	logger    *slog.Logger
	threshold int
}

func NewScreener(
	client platform.Client,
	words repository.WordRepository,
	avatars repository.BannedAvatarRepository,
	settings repository.SettingsRepository,
	enforcer Enforcement,
	cd *cooldown.Cooldown,
	onLinkBio func(ctx context.Context, ev LinkInBio),
	logger *slog.Logger,
	threshold int,
) *Screener {
	return &Screener{
		client:    client,
		words:     words,
		avatars:   avatars,
		settings:  settings,
		enforcer:  enforcer,
		cooldown:  cd,
		hashMemo:  expirable.NewLRU[string, avatarhash.Hash](hashMemoSize, nil, hashMemoTTL),
		onLinkBio: onLinkBio,
		logger:    logger,
		threshold: threshold,
	}
}

// Screen runs every profile check for the user in the room, in short-circuit
// order. Returns true when a violation was found and handled; the caller
// stops further checks for the event.
func (s *Screener) Screen(ctx context.Context, roomID int64, user platform.User) bool {
	if s.screenAvatar(ctx, roomID, user) {
		return true
	}
	return s.screenProfile(ctx, roomID, user)
}

func (s *Screener) screenAvatar(ctx context.Context, roomID int64, user platform.User) bool {
	if !s.cooldown.ShouldRun(ctx, checkAvatar, user.ID) {
		return false
	}

	avatar, err := s.client.GetAvatar(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch avatar", "user_id", user.ID, "error", err)
		return false
	}
	if avatar == nil || avatar.ContentID == "" {
		return false
	}

	// exact content-id hit needs no hashing at all
	known, err := s.avatars.FindByContentID(avatar.ContentID)
	if err != nil {
		s.logger.Error("Failed to look up avatar", "user_id", user.ID, "error", err)
		return false
	}
	if known != nil {
		s.ban(ctx, roomID, user, fmt.Sprintf(messages.MsgReasonBannedAvatar, avatar.ContentID))
		return true
	}

	hash, ok := s.hashAvatar(avatar)
	if !ok {
		return false
	}

	banned, err := s.avatars.GetAll()
	if err != nil {
		s.logger.Error("Failed to load banned avatars", "error", err)
		return false
	}
	for _, b := range banned {
		bh, err := avatarhash.Parse(b.Hash)
		if err != nil {
			continue
		}
		if avatarhash.Similar(hash, bh, s.threshold) {
			s.ban(ctx, roomID, user, fmt.Sprintf(messages.MsgReasonBannedAvatar, b.ContentID))
			return true
		}
	}
	return false
}

// hashAvatar computes the perceptual hash, memoized by content id since the
// same photo is seen once per message otherwise. Undecodable images fail
// closed to "no match".
func (s *Screener) hashAvatar(avatar *platform.Avatar) (avatarhash.Hash, bool) {
	if h, ok := s.hashMemo.Get(avatar.ContentID); ok {
		return h, true
	}
	if len(avatar.Data) == 0 {
		return avatarhash.Hash{}, false
	}
	h, err := avatarhash.FromBytes(avatar.Data)
	if err != nil {
		s.logger.Debug("Undecodable avatar", "content_id", avatar.ContentID, "error", err)
		return avatarhash.Hash{}, false
	}
	s.hashMemo.Add(avatar.ContentID, h)
	return h, true
}

func (s *Screener) screenProfile(ctx context.Context, roomID int64, user platform.User) bool {
	if !s.cooldown.ShouldRun(ctx, checkProfile, user.ID) {
		return false
	}

	profile, err := s.client.GetProfile(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch profile", "user_id", user.ID, "error", err)
		return false
	}
	if profile == nil {
		profile = &platform.Profile{}
	}

	if profile.Bio != "" {
		if s.bioLinkViolation(ctx, roomID, user, profile.Bio) {
			return true
		}
		if word := s.matchWords(roomID, repository.WordKindBio, profile.Bio); word != "" {
			s.ban(ctx, roomID, user, fmt.Sprintf(messages.MsgReasonBioWord, word))
			return true
		}
	}

	// username first, then the name fields; first match wins
	for _, field := range []string{user.Username, user.FirstName, user.LastName} {
		if field == "" {
			continue
		}
		if word := s.matchWords(roomID, repository.WordKindNick, field); word != "" {
			s.ban(ctx, roomID, user, fmt.Sprintf(messages.MsgReasonNickWord, word))
			return true
		}
	}
	return false
}

// bioLinkViolation defers to human judgment: the member is fully restricted
// and the administrators get a ban-or-restore decision, no auto-ban.
func (s *Screener) bioLinkViolation(ctx context.Context, roomID int64, user platform.User, bio string) bool {
	settings, err := s.settings.GetSettings(roomID)
	if err != nil || !settings.LinkBanEnabled {
		return false
	}
	if !filters.ContainsLink(bio) {
		return false
	}

	if err := s.client.RestrictMember(ctx, roomID, user.ID, platform.PermsFullRestrict); err != nil {
		s.logger.Error("Failed to restrict member for bio link", "room_id", roomID, "user_id", user.ID, "error", err)
	}
	s.enforcer.PurgeMessages(ctx, roomID, user.ID)

	if s.onLinkBio != nil {
		s.onLinkBio(ctx, LinkInBio{RoomID: roomID, User: user, Bio: bio})
	}
	return true
}

func (s *Screener) matchWords(roomID int64, kind, text string) string {
	words, err := s.words.GetWords(roomID, kind)
	if err != nil {
		s.logger.Error("Failed to load word list", "room_id", roomID, "kind", kind, "error", err)
		return ""
	}
	normalized := textnorm.Normalize(text)
	for _, word := range words {
		if word != "" && strings.Contains(normalized, word) {
			return word
		}
	}
	return ""
}

func (s *Screener) ban(ctx context.Context, roomID int64, user platform.User, reason string) {
	s.enforcer.Ban(ctx, roomID, user, reason, "profile_screening", true, 0)
}

// ResetCooldown clears the per-user gates so a profile change is re-screened
// immediately.
func (s *Screener) ResetCooldown(ctx context.Context, userID int64) {
	s.cooldown.Reset(ctx, checkAvatar, userID)
	s.cooldown.Reset(ctx, checkProfile, userID)
}
