package progress

import (
	"context"
	"fmt"
	"sync"
)

// RemoteStore persists one progress document per user.
type RemoteStore interface {
	// Load returns the user's document. A user with no document gets an empty one.
	Load(ctx context.Context, userID string) (Document, error)
	// MergeSection writes topic entries into one section without touching siblings.
	MergeSection(ctx context.Context, userID, courseID, sectionID string, rec SectionRecord) error
	// DeleteSection removes exactly one course/section subtree.
	DeleteSection(ctx context.Context, userID, courseID, sectionID string) error
}

// LocalCache holds per-device ordinal lists, one entry per course/section.
type LocalCache interface {
	// Read returns the raw cached value, or nil when there is none.
	Read(ctx context.Context, deviceID, courseID, sectionID string) ([]byte, error)
	Write(ctx context.Context, deviceID, courseID, sectionID string, ordinals []int) error
	// Add appends ordinal to the cached list in one step and returns the
	// stored value. Concurrent adds never drop each other's ordinals.
	Add(ctx context.Context, deviceID, courseID, sectionID string, ordinal int) ([]byte, error)
	Clear(ctx context.Context, deviceID, courseID, sectionID string) error
}

// MemoryRemoteStore is an in-memory implementation of RemoteStore.
type MemoryRemoteStore struct {
	docs map[string]Document
	mu   sync.RWMutex
}

// NewMemoryRemoteStore creates a new in-memory remote store.
func NewMemoryRemoteStore() *MemoryRemoteStore {
	return &MemoryRemoteStore{
		docs: make(map[string]Document),
	}
}

func (s *MemoryRemoteStore) Load(_ context.Context, userID string) (Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[userID].clone(), nil
}

func (s *MemoryRemoteStore) MergeSection(_ context.Context, userID, courseID, sectionID string, rec SectionRecord) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[userID]
	if !ok {
		doc = make(Document)
		s.docs[userID] = doc
	}
	course, ok := doc[courseID]
	if !ok {
		course = make(CourseRecord)
		doc[courseID] = course
	}
	section, ok := course[sectionID]
	if !ok {
		section = make(SectionRecord)
		course[sectionID] = section
	}
	for key, r := range rec {
		section[key] = r
	}
	return nil
}

func (s *MemoryRemoteStore) DeleteSection(_ context.Context, userID, courseID, sectionID string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if course, ok := s.docs[userID][courseID]; ok {
		delete(course, sectionID)
	}
	return nil
}

// MemoryLocalCache is an in-memory implementation of LocalCache.
type MemoryLocalCache struct {
	entries map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryLocalCache creates a new in-memory local cache.
func NewMemoryLocalCache() *MemoryLocalCache {
	return &MemoryLocalCache{
		entries: make(map[string][]byte),
	}
}

func (c *MemoryLocalCache) Read(_ context.Context, deviceID, courseID, sectionID string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[deviceKey(deviceID, courseID, sectionID)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *MemoryLocalCache) Write(_ context.Context, deviceID, courseID, sectionID string, ordinals []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[deviceKey(deviceID, courseID, sectionID)] = EncodeOrdinals(ordinals)
	return nil
}

func (c *MemoryLocalCache) Add(_ context.Context, deviceID, courseID, sectionID string, ordinal int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := deviceKey(deviceID, courseID, sectionID)
	v := EncodeOrdinals(append(DecodeOrdinals(c.entries[key]), ordinal))
	c.entries[key] = v
	return append([]byte(nil), v...), nil
}

// Put stores a raw value as-is, including malformed content.
func (c *MemoryLocalCache) Put(deviceID, courseID, sectionID string, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[deviceKey(deviceID, courseID, sectionID)] = raw
}

func (c *MemoryLocalCache) Clear(_ context.Context, deviceID, courseID, sectionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, deviceKey(deviceID, courseID, sectionID))
	return nil
}

func deviceKey(deviceID, courseID, sectionID string) string {
	return "progress:" + deviceID + ":" + LocalCacheKey(courseID, sectionID)
}
