package audio

import (
	"fmt"
	"io/fs"
	"sync"
)

// PCMCache keeps decoded chimes in memory. Keys include the file's size and
// modification time, so replacing a sound on disk causes a miss.
type PCMCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	hits    int64
	misses  int64
}

// NewPCMCache creates an empty cache.
func NewPCMCache() *PCMCache {
	return &PCMCache{entries: make(map[string][]byte)}
}

// Key identifies one version of a sound file.
func Key(name string, fi fs.FileInfo) string {
	return fmt.Sprintf("%s:%d:%d", name, fi.Size(), fi.ModTime().UnixNano())
}

// Get returns the PCM stored under key.
func (c *PCMCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Put stores pcm under key.
func (c *PCMCache) Put(key string, pcm []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = pcm
}

// Stats returns hit and miss counts.
func (c *PCMCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of cached sounds.
func (c *PCMCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
