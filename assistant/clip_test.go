package assistant

import (
	"testing"
	"time"
)

func TestAnimationClip(t *testing.T) {
	clip := NewAnimationClip(
		ClipFrame{Image: NewFrame(), Duration: time.Millisecond},
		ClipFrame{Image: NewFrame(), Duration: 2 * time.Millisecond},
	)
	if clip.Finished() {
		t.Fatal("new clip should not be finished")
	}
	for i := 0; i < 2; i++ {
		f, ok := clip.Next()
		if !ok || f.Duration != time.Duration(i+1)*time.Millisecond {
			t.Fatalf("Next() #%d = %+v, %v", i, f, ok)
		}
	}
	if _, ok := clip.Next(); ok || !clip.Finished() {
		t.Fatal("clip should be finished after its last frame")
	}
	clip.Rewind()
	if _, ok := clip.Next(); !ok {
		t.Error("Rewind() should restart the clip")
	}
}

func TestEmptyClip(t *testing.T) {
	clip := NewAnimationClip()
	if clip.First() != nil || !clip.Finished() {
		t.Error("empty clip should be finished with no first frame")
	}
}
