package vocab

import "sync"

// Cache maps normalized words to translations for the lifetime of a session.
// Entries are never evicted.
type Cache struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewCache() *Cache {
	return &Cache{items: make(map[string]string)}
}

func (c *Cache) Get(word string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.items[word]
	return t, ok
}

func (c *Cache) Put(word, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[word] = translation
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
