package resolver

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/descriptor"
)

// DefaultCacheSize bounds the descriptor cache when no size is configured.
const DefaultCacheSize = 1024

// DescriptorCache holds packaged-artifact descriptors keyed by exact
// coordinates. Descriptor content is a function of artifact identity, so an
// entry never needs invalidation for the lifetime of the cache. Absent
// descriptors are cached as nil. Safe for concurrent use.
type DescriptorCache struct {
	entries *lru.Cache[coords.ArtifactCoords, *descriptor.Descriptor]
}

// NewDescriptorCache creates a cache holding up to size descriptors.
func NewDescriptorCache(size int) (*DescriptorCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[coords.ArtifactCoords, *descriptor.Descriptor](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create descriptor cache: %w", err)
	}
	return &DescriptorCache{entries: entries}, nil
}

// Load returns the descriptor of the artifact at file, reading it on a
// cache miss. A nil cache reads every time.
func (c *DescriptorCache) Load(artifact coords.ArtifactCoords, file string) (*descriptor.Descriptor, error) {
	if c == nil {
		return descriptor.Find(file, artifact.Type)
	}
	if d, ok := c.entries.Get(artifact); ok {
		return d, nil
	}
	d, err := descriptor.Find(file, artifact.Type)
	if err != nil {
		return nil, err
	}
	c.entries.Add(artifact, d)
	return d, nil
}

// Len reports the number of cached entries.
func (c *DescriptorCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
