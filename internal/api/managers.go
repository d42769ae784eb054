package api

import (
	"container/list"
	"sync"

	"janai-go/internal/complaint"
)

// managerCache holds the complaint managers of the most recently seen
// users. It is keyed by untrusted input, so it never grows past max.
type managerCache struct {
	max int

	mu    sync.Mutex
	order *list.List // front is most recent; values are *cachedManager
	byID  map[string]*list.Element
}

type cachedManager struct {
	userID string
	m      *complaint.Manager
}

func newManagerCache(max int) *managerCache {
	if max <= 0 {
		max = defaultMaxManagers
	}
	return &managerCache{max: max, order: list.New(), byID: map[string]*list.Element{}}
}

// get returns userID's manager, building it with create on a miss.
func (c *managerCache) get(userID string, create func() *complaint.Manager) *complaint.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byID[userID]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cachedManager).m
	}
	m := create()
	c.byID[userID] = c.order.PushFront(&cachedManager{userID: userID, m: m})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byID, oldest.Value.(*cachedManager).userID)
	}
	return m
}

func (c *managerCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
