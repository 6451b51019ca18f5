// Package msgcache holds short histories of recent messages. UserLog remembers
// the ids of each member's last messages so a ban can purge them even when the
// platform's revoke flag misses older ones; BotLog remembers the bot's own
// recent texts so the mimicry filter can match against them.
package msgcache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"chat-sentinel-bot/internal/textnorm"
)

const (
	userLogCapacity = 1000
	perUserMessages = 200
	botLogCapacity  = 500
	perRoomBotMsgs  = 20
	DeleteChunkSize = 100
)

type userKey struct {
	roomID int64
	userID int64
}

// UserLog is a bounded cache of recent message ids per (room, user).
type UserLog struct {
	mu    sync.Mutex
	cache *lru.Cache[userKey, []int64]
}

func NewUserLog() *UserLog {
	cache, _ := lru.New[userKey, []int64](userLogCapacity)
	return &UserLog{cache: cache}
}

func (l *UserLog) Record(roomID, userID, messageID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := userKey{roomID: roomID, userID: userID}
	ids, _ := l.cache.Get(k)
	ids = append(ids, messageID)
	if len(ids) > perUserMessages {
		ids = ids[len(ids)-perUserMessages:]
	}
	l.cache.Add(k, ids)
}

// TakeAll returns every remembered id for the user and forgets them.
func (l *UserLog) TakeAll(roomID, userID int64) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := userKey{roomID: roomID, userID: userID}
	ids, ok := l.cache.Get(k)
	if !ok {
		return nil
	}
	l.cache.Remove(k)
	return ids
}

// ChunkIDs splits ids into slices of at most size elements, matching the
// batch limit of the platform's bulk delete call.
func ChunkIDs(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]int64
	for size < len(ids) {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	return append(chunks, ids)
}

// BotLog remembers the normalized text of the bot's recent messages per room.
type BotLog struct {
	mu    sync.Mutex
	cache *lru.Cache[int64, []string]
}

func NewBotLog() *BotLog {
	cache, _ := lru.New[int64, []string](botLogCapacity)
	return &BotLog{cache: cache}
}

func (l *BotLog) Record(roomID int64, text string) {
	normalized := textnorm.Normalize(text)
	if normalized == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	texts, _ := l.cache.Get(roomID)
	texts = append(texts, normalized)
	if len(texts) > perRoomBotMsgs {
		texts = texts[len(texts)-perRoomBotMsgs:]
	}
	l.cache.Add(roomID, texts)
}

// Contains reports whether text matches one of the bot's recent messages in
// the room after normalization.
func (l *BotLog) Contains(roomID int64, text string) bool {
	normalized := textnorm.Normalize(text)
	if normalized == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	texts, ok := l.cache.Get(roomID)
	if !ok {
		return false
	}
	for _, t := range texts {
		if t == normalized {
			return true
		}
	}
	return false
}
