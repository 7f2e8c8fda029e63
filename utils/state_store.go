package utils

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type stateEntry struct {
	userID    uint
	expiresAt time.Time
}

var (
	stateStore   = map[string]stateEntry{}
	stateStoreMu sync.Mutex
)

// SaveState binds an OAuth state token to the user who started the flow.
func SaveState(state string, userID uint, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "oauth:state:"+state, strconv.FormatUint(uint64(userID), 10), ttl).Err(); err == nil {
			return
		}
	}
	stateStoreMu.Lock()
	stateStore[state] = stateEntry{userID: userID, expiresAt: time.Now().Add(ttl)}
	stateStoreMu.Unlock()
}

// ConsumeState removes a state token and returns the user it was issued to.
// A token is valid once.
func ConsumeState(state string) (uint, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		key := "oauth:state:" + state
		v, err := rc.GetDel(ctx, key).Result()
		if err != nil {
			// Servers older than 6.2 lack GETDEL
			script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
			res, evalErr := rc.Eval(ctx, script, []string{key}).Result()
			if evalErr == nil {
				v, _ = res.(string)
			}
		}
		if v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			return uint(id), err == nil
		}
	}

	stateStoreMu.Lock()
	entry, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.userID, true
}
