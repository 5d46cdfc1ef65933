package oled

import (
	"fmt"
	"sync"
	"time"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/sirupsen/logrus"
)

// animation is one playback of a clip. kill is closed to stop it between
// two frames and done once it returned.
type animation struct {
	kill     chan struct{}
	killOnce sync.Once
	done     chan struct{}
}

func newAnimation() *animation {
	return &animation{
		kill: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (a *animation) stop() {
	a.killOnce.Do(func() { close(a.kill) })
}

func (a *animation) killed() bool {
	select {
	case <-a.kill:
		return true
	default:
		return false
	}
}

// PlayAnimatedImage plays clip, in a new goroutine when background is set.
// Any animation already playing is stopped first. Playback ends when
// StopAnimatedImage or a still display call stops it, or at the end of
// the clip unless loop is set; a clip that ends on its own resets the
// display. Every play starts from the first frame of clip.
func (o *OLED) PlayAnimatedImage(clip *assistant.AnimationClip, background bool, loop bool) error {
	if clip == nil || clip.Len() == 0 {
		return fmt.Errorf("%w: empty animation", ErrInvalidArgument)
	}
	if err := o.Err(); err != nil {
		return err
	}
	o.StopAnimatedImage()

	a := newAnimation()
	o.animLock.Lock()
	o.anim = a
	o.animLock.Unlock()

	if background {
		go func() {
			defer o.finishAnimation(a)
			if err := o.autoPlay(a, clip, loop); err != nil {
				logrus.Warnf("Animation stopped: %v", err)
			}
		}()
		return nil
	}
	defer o.finishAnimation(a)
	return o.autoPlay(a, clip, loop)
}

// PlayAnimatedImageFile plays the image at a local path or an http(s) URL.
func (o *OLED) PlayAnimatedImageFile(pathOrURL string, background bool, loop bool) error {
	clip, err := assistant.LoadAnimationClip(pathOrURL)
	if err != nil {
		return err
	}
	return o.PlayAnimatedImage(clip, background, loop)
}

// StopAnimatedImage stops the playing animation and waits for it to
// return. Called from the animation itself it does nothing.
func (o *OLED) StopAnimatedImage() {
	o.stopAnimation(nil)
}

// IsAnimating reports whether an animation is playing.
func (o *OLED) IsAnimating() bool {
	o.animLock.Lock()
	defer o.animLock.Unlock()
	return o.anim != nil
}

func (o *OLED) stopAnimation(caller *animation) {
	o.animLock.Lock()
	a := o.anim
	o.animLock.Unlock()

	if a == nil || a == caller {
		return
	}
	a.stop()
	<-a.done
}

func (o *OLED) finishAnimation(a *animation) {
	o.animLock.Lock()
	if o.anim == a {
		o.anim = nil
	}
	o.animLock.Unlock()
	close(a.done)
}

func (o *OLED) autoPlay(a *animation, clip *assistant.AnimationClip, loop bool) error {
	for {
		clip.Rewind()
		for !a.killed() {
			frame, ok := clip.Next()
			if !ok {
				break
			}
			if err := o.displayImage(frame.Image, false, a); err != nil {
				return err
			}
			select {
			case <-a.kill:
			case <-time.After(frame.Duration):
			}
		}

		if a.killed() {
			return nil
		}
		if !loop {
			return o.reset(a)
		}
	}
}
