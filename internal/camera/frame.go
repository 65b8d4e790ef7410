package camera

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Frame is the most recently fetched image
type Frame struct {
	Data        []byte
	ContentType string
	FetchedAt   time.Time
}

// FrameCache is a single overwritten slot holding the latest frame.
// Readers never block the writer; a reader may see a slightly older frame.
type FrameCache struct {
	latest atomic.Pointer[Frame]
	mirror Storage
	now    func() time.Time
}

// NewFrameCache creates an empty cache. A non-nil mirror also receives every
// stored frame under MirrorFilename, overwriting the previous one.
func NewFrameCache(mirror Storage) *FrameCache {
	return &FrameCache{
		mirror: mirror,
		now:    time.Now,
	}
}

// MirrorFilename is the single file the mirror overwrites
const MirrorFilename = "last_captured_frame.jpg"

// Store replaces the cached frame. The caller must not modify data afterwards.
func (c *FrameCache) Store(data []byte, contentType string) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.latest.Store(&Frame{
		Data:        data,
		ContentType: contentType,
		FetchedAt:   c.now(),
	})

	if c.mirror != nil {
		if _, err := c.mirror.Save(MirrorFilename, data); err != nil {
			slog.Warn("Failed to mirror frame", "error", err)
		}
	}
}

// Latest returns the cached frame, or false before the first Store
func (c *FrameCache) Latest() (Frame, bool) {
	f := c.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}
