package assistant

import (
	"image"
	"sync"
	"time"
)

// ClipFrame is one image of an animation and how long it stays on screen.
type ClipFrame struct {
	Image    image.Image
	Duration time.Duration
}

// AnimationClip walks the frames of an image. Frames are handed out once;
// Rewind starts over, which is how looping playback is done.
type AnimationClip struct {
	lock   sync.Mutex
	frames []ClipFrame
	next   int
}

func NewAnimationClip(frames ...ClipFrame) *AnimationClip {
	return &AnimationClip{frames: frames}
}

// StillClip wraps a single image.
func StillClip(img image.Image) *AnimationClip {
	return NewAnimationClip(ClipFrame{Image: img})
}

// Next returns the next frame, or false once the clip is finished.
func (c *AnimationClip) Next() (ClipFrame, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.next >= len(c.frames) {
		return ClipFrame{}, false
	}
	f := c.frames[c.next]
	c.next++
	return f, true
}

func (c *AnimationClip) Finished() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.next >= len(c.frames)
}

func (c *AnimationClip) Rewind() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.next = 0
}

func (c *AnimationClip) Len() int {
	return len(c.frames)
}

// First returns the first frame image, nil for an empty clip.
func (c *AnimationClip) First() image.Image {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[0].Image
}
