package product

import (
	"maps"
	"slices"
)

// ChannelBuffer tracks the segments received for one channel of one product.
type ChannelBuffer struct {
	Name        string
	Segments    map[int]string
	Checksums   map[int]uint16
	MaxSegments int
	// Timestamp is the frame time in unix seconds.
	Timestamp int64
	// OK is set by the scheduler once the buffer has been delivered.
	OK bool
	// Erased is set once the segment files have been deleted from disk.
	Erased bool
}

// NewChannelBuffer returns an empty buffer.
func NewChannelBuffer(name string) *ChannelBuffer {
	return &ChannelBuffer{
		Name:      name,
		Segments:  make(map[int]string),
		Checksums: make(map[int]uint16),
	}
}

// Insert records a segment. The first path stored for an index wins; later
// arrivals for the same index are ignored and Insert reports false.
func (c *ChannelBuffer) Insert(index int, path string, checksum uint16) bool {
	if index < 0 || path == "" {
		return false
	}
	if _, exists := c.Segments[index]; exists {
		return false
	}
	c.Segments[index] = path
	c.Checksums[index] = checksum
	return true
}

// SetMaxSegments records the expected segment count the first time a
// positive value is seen. It reports whether the value was stored.
func (c *ChannelBuffer) SetMaxSegments(n int) bool {
	if c.MaxSegments != 0 || n <= 0 {
		return false
	}
	c.MaxSegments = n
	return true
}

// IsComplete reports whether every expected segment has arrived.
func (c *ChannelBuffer) IsComplete() bool {
	return c.MaxSegments > 0 && len(c.Segments) == c.MaxSegments
}

// Indices returns the received segment indices in ascending order.
func (c *ChannelBuffer) Indices() []int {
	return slices.Sorted(maps.Keys(c.Segments))
}

// Paths returns segment paths ordered by index.
func (c *ChannelBuffer) Paths() []string {
	indices := c.Indices()
	paths := make([]string, 0, len(indices))
	for _, idx := range indices {
		paths = append(paths, c.Segments[idx])
	}
	return paths
}

// FirstSegment returns the path of the lowest received index.
func (c *ChannelBuffer) FirstSegment() (string, bool) {
	if len(c.Segments) == 0 {
		return "", false
	}
	return c.Segments[slices.Min(slices.Collect(maps.Keys(c.Segments)))], true
}

// Clone returns a deep copy.
func (c *ChannelBuffer) Clone() *ChannelBuffer {
	if c == nil {
		return nil
	}
	out := *c
	out.Segments = maps.Clone(c.Segments)
	out.Checksums = maps.Clone(c.Checksums)
	if out.Segments == nil {
		out.Segments = make(map[int]string)
	}
	if out.Checksums == nil {
		out.Checksums = make(map[int]uint16)
	}
	return &out
}
