// Package errorcounter keeps in-process failure counts of records read from a queue.
package errorcounter

import "sync"

type key struct {
	queue string
	id    string
}

func New() *Counter {
	return &Counter{
		store: make(map[key]int),
	}
}

// Counter counts how many times each record id failed on a queue. It is safe for concurrent use.
type Counter struct {
	mu    sync.Mutex
	store map[key]int
}

// Add records one more failure and returns the new count.
func (c *Counter) Add(queue, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{queue: queue, id: id}
	c.store[k]++
	return c.store[k]
}

func (c *Counter) Count(queue, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store[key{queue: queue, id: id}]
}

func (c *Counter) Clear(queue, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.store, key{queue: queue, id: id})
}

// Len returns the number of records with a failure count.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.store)
}
