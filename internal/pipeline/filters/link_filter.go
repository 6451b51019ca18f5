package filters

import (
	"context"
	"regexp"
	"strings"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/repository"
)

var (
	schemePattern    = regexp.MustCompile(`(?i)\bhttps?://\S+`)
	shortLinkPattern = regexp.MustCompile(`(?i)\b(?:t\.me|telegra\.ph|tinyurl\.com|bit\.ly)/\S+`)
	domainPattern    = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)*\.(?:com|net|org|ru|io|me|xyz|site|online|shop|store|club|info)\b`)
	hostPattern      = regexp.MustCompile(`(?i)\b([a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)*\.[a-z]{2,})\b`)
)

// LinkFilter enforces the zero-tolerance link policy. When the room has the
// link ban on, any URL entity or link-looking text is an immediate ban with
// revoke-history semantics, unless every mentioned host is explicitly allowed
// for the room.
type LinkFilter struct {
	repo repository.SettingsRepository
}

func NewLinkFilter(repo repository.SettingsRepository) *LinkFilter {
	return &LinkFilter{repo: repo}
}

func (f *LinkFilter) Name() string {
	return "link_filter"
}

func (f *LinkFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	settings, err := f.repo.GetSettings(payload.RoomID)
	if err != nil {
		return pipeline.Allowed(), nil
	}
	if !settings.LinkBanEnabled {
		return pipeline.Allowed(), nil
	}

	if !payload.HasLinkEntity && !ContainsLink(payload.Text) {
		return pipeline.Allowed(), nil
	}
	if allHostsAllowed(payload.Text, settings.AllowedDomains) {
		return pipeline.Allowed(), nil
	}

	return &pipeline.Result{
		IsAllowed:        false,
		FilterName:       f.Name(),
		Reason:           messages.MsgReasonLink,
		DeleteMessage:    true,
		Action:           pipeline.ActionBan,
		ProposeGlobalBan: true,
	}, nil
}

// ContainsLink reports whether text looks like it carries a URL: an explicit
// scheme, a known short-link host, or a bare domain with a common suffix.
// Shared with the profile-bio screening.
func ContainsLink(text string) bool {
	return schemePattern.MatchString(text) ||
		shortLinkPattern.MatchString(text) ||
		domainPattern.MatchString(text)
}

func allHostsAllowed(text string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	hosts := hostPattern.FindAllString(text, -1)
	if len(hosts) == 0 {
		return false
	}
	for _, host := range hosts {
		host = strings.ToLower(host)
		ok := false
		for _, a := range allowed {
			a = strings.ToLower(a)
			if host == a || strings.HasSuffix(host, "."+a) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
