package enforce

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chat-sentinel-bot/internal/events"
	"chat-sentinel-bot/internal/msgcache"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/tracker"
)

func newTestEnforcer(client *mockClient, sched *mockScheduler, bus *events.Bus) (*Enforcer, *mockModLog) {
	modLog := &mockModLog{}
	e := NewEnforcer(
		client,
		msgcache.NewUserLog(),
		msgcache.NewBotLog(),
		tracker.New(nil),
		modLog,
		bus,
		sched,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{
			MaxWarnings:  2,
			MuteDuration: 30 * time.Minute,
			NoticeTTL:    15 * time.Second,
		},
	)
	return e, modLog
}

func TestBan_PurgesCachedMessagesFirst(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, modLog := newTestEnforcer(client, sched, events.NewBus())

	for i := 0; i < 150; i++ {
		e.RecordSeenMessage(1, 10, int64(i))
	}

	user := platform.User{ID: 10, Username: "spammer"}
	e.Ban(context.Background(), 1, user, "test reason", "word_filter", true, 0)

	assert.Len(t, client.deletedBatches, 2, "150 ids purged in chunks of 100")
	assert.Len(t, client.deletedBatches[0], 100)
	assert.Len(t, client.deletedBatches[1], 50)
	assert.Equal(t, []int64{10}, client.banned)
	assert.Len(t, client.sentMessages, 1)
	assert.Contains(t, client.sentMessages[0], "@spammer")
	assert.Contains(t, client.sentMessages[0], "test reason")

	if assert.Len(t, modLog.entries, 1) {
		assert.Equal(t, repository.ActionBan, modLog.entries[0].Action)
	}
}

func TestBan_PublishesProposalEvent(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	bus := events.NewBus()

	var got []events.Violation
	bus.Subscribe(func(ctx context.Context, v events.Violation) {
		got = append(got, v)
	})

	e, _ := newTestEnforcer(client, sched, bus)
	e.Ban(context.Background(), 1, platform.User{ID: 10}, "reason", "link_filter", true, 0)

	if assert.Len(t, got, 1) {
		assert.True(t, got[0].ProposeGlobalBan)
		assert.Equal(t, "link_filter", got[0].FilterName)
		assert.Equal(t, repository.ActionBan, got[0].Action)
	}
}

func TestBan_PlatformErrorStopsNoticeAndLog(t *testing.T) {
	client := newMockClient()
	client.banErr = fmt.Errorf("no permission")
	sched := newMockScheduler()
	e, modLog := newTestEnforcer(client, sched, events.NewBus())

	e.Ban(context.Background(), 1, platform.User{ID: 10}, "reason", "word_filter", true, 0)

	assert.Empty(t, client.sentMessages)
	assert.Empty(t, modLog.entries)
}

func TestBan_ManualNoticeOmitsReason(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, _ := newTestEnforcer(client, sched, events.NewBus())

	user := platform.User{ID: 10, Username: "spammer"}
	e.Ban(context.Background(), 1, user, "requested via command", "manual", false, 99)

	if assert.Len(t, client.sentMessages, 1) {
		assert.Contains(t, client.sentMessages[0], "banned by an administrator")
		assert.NotContains(t, client.sentMessages[0], "requested via command")
	}
}

func TestMute_SchedulesRevalidatedRestore(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, _ := newTestEnforcer(client, sched, events.NewBus())

	e.Mute(context.Background(), 1, platform.User{ID: 10}, 30*time.Minute, "flood", "flood_filter", 0)
	assert.Equal(t, platform.PermsFullRestrict, client.restricted[10])

	// still restricted at fire time: restore runs
	client.member = &platform.Member{Status: platform.StatusRestricted}
	assert.True(t, sched.fire("unmute:1:10"))
	assert.Equal(t, platform.PermsUnrestricted, client.restricted[10])
}

func TestMute_RestoreSkippedWhenStateChanged(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, _ := newTestEnforcer(client, sched, events.NewBus())

	e.Mute(context.Background(), 1, platform.User{ID: 10}, 30*time.Minute, "flood", "flood_filter", 0)

	// the member left before the restore fired
	client.member = &platform.Member{Status: platform.StatusLeft}
	sched.fire("unmute:1:10")
	assert.Equal(t, platform.PermsFullRestrict, client.restricted[10], "no restore for a departed member")
}

func TestIssueWarning_LadderMutesAtLimit(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, modLog := newTestEnforcer(client, sched, events.NewBus())
	ctx := context.Background()
	user := platform.User{ID: 10, FirstName: "Bob"}

	muted := e.IssueWarning(ctx, 1, user, "flood", "flood_filter")
	assert.False(t, muted, "first warning must not mute")
	assert.Contains(t, client.sentMessages[0], "1 of 2")

	muted = e.IssueWarning(ctx, 1, user, "flood", "flood_filter")
	assert.True(t, muted, "warning at the limit escalates to a mute")
	assert.Equal(t, platform.PermsFullRestrict, client.restricted[10])

	// counter reset: the next violation is warning 1 again
	muted = e.IssueWarning(ctx, 1, user, "caps", "caps_filter")
	assert.False(t, muted)
	assert.Contains(t, client.sentMessages[len(client.sentMessages)-1], "1 of 2")

	actions := make([]string, len(modLog.entries))
	for i, entry := range modLog.entries {
		actions[i] = entry.Action
	}
	assert.Equal(t, []string{
		repository.ActionWarn,
		repository.ActionMute,
		repository.ActionWarn,
	}, actions)
}

func TestKick_BansThenUnbans(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, modLog := newTestEnforcer(client, sched, events.NewBus())

	err := e.Kick(context.Background(), 1, 10, "captcha timeout")
	assert.NoError(t, err)
	assert.Equal(t, []int64{10}, client.banned)
	assert.Equal(t, []int64{10}, client.unbanned)
	if assert.Len(t, modLog.entries, 1) {
		assert.Equal(t, repository.ActionKick, modLog.entries[0].Action)
	}
}

func TestNotice_AutoDeletes(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, _ := newTestEnforcer(client, sched, events.NewBus())

	e.Notice(context.Background(), 1, "heads up")
	assert.Len(t, client.sentMessages, 1)

	fired := false
	for name := range sched.jobs {
		if sched.fire(name) {
			fired = true
		}
		break
	}
	assert.True(t, fired, "deletion job scheduled")
	assert.Len(t, client.deletedSingles, 1)
}

func TestUnmute_CancelsPendingRestore(t *testing.T) {
	client := newMockClient()
	sched := newMockScheduler()
	e, _ := newTestEnforcer(client, sched, events.NewBus())

	e.Mute(context.Background(), 1, platform.User{ID: 10}, time.Hour, "flood", "flood_filter", 0)
	err := e.Unmute(context.Background(), 1, 10, 99)
	assert.NoError(t, err)
	assert.Equal(t, platform.PermsUnrestricted, client.restricted[10])
	assert.Contains(t, sched.cancelled, "unmute:1:10")
}
