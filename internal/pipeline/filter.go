package pipeline

import (
	"context"
	"time"
)

// Action is the enforcement a filter asks for on a violation.
type Action string

const (
	ActionNone Action = ""
	// ActionWarn feeds the shared warning ladder; enough warnings mute.
	ActionWarn Action = "warn"
	ActionMute Action = "mute"
	ActionBan  Action = "ban"
)

type Result struct {
	IsAllowed  bool
	FilterName string
	Reason     string

	// Bypass stops the pipeline with no action at all, used for
	// whitelisted senders.
	Bypass bool

	DeleteMessage bool
	Action        Action
	MuteDuration  time.Duration
	// Notice is a standalone auto-deleted room notice, used by first-strike
	// checks that warn outside the shared ladder.
	Notice string
	// ProposeGlobalBan asks the proposal workflow to offer promoting the
	// ban to the global registry. Off for users already in it.
	ProposeGlobalBan bool
}

var allowed = &Result{IsAllowed: true}

// Allowed is the no-violation result.
func Allowed() *Result { return allowed }

type Filter interface {
	Name() string
	Process(ctx context.Context, payload Payload) (*Result, error)
}
