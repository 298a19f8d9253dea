package bot

import (
	"errors"
	"sync"
	"time"

	"github.com/desertthunder/dlbot/internal/shared"
)

// ChoiceTTL is how long video/audio buttons stay usable.
const ChoiceTTL = 180 * time.Second

var (
	errChoiceExpired = errors.New("choice expired")
	errChoiceForeign = errors.New("choice belongs to another user")
)

type choice struct {
	url     string
	userID  int64
	expires time.Time
}

// choices holds links waiting for the requester to pick a format.
// Callback data is limited to 64 bytes, so buttons carry a short token instead of the link.
type choices struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock func() time.Time
	items map[string]choice
}

func newChoices(ttl time.Duration, clock func() time.Time) *choices {
	if ttl <= 0 {
		ttl = ChoiceTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &choices{ttl: ttl, clock: clock, items: make(map[string]choice)}
}

// put stores url for userID and returns its token. Expired entries are dropped on the way.
func (c *choices) put(url string, userID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	for token, item := range c.items {
		if now.After(item.expires) {
			delete(c.items, token)
		}
	}

	token := shared.ShortID()
	c.items[token] = choice{url: url, userID: userID, expires: now.Add(c.ttl)}
	return token
}

// claim removes and returns the choice for token when userID made it and it has not expired.
func (c *choices) claim(token string, userID int64) (choice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[token]
	if !ok {
		return choice{}, errChoiceExpired
	}
	if c.clock().After(item.expires) {
		delete(c.items, token)
		return choice{}, errChoiceExpired
	}
	if item.userID != userID {
		return choice{}, errChoiceForeign
	}
	delete(c.items, token)
	return item, nil
}

func (c *choices) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
