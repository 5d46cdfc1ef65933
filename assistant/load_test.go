package assistant

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T, delays ...int) []byte {
	t.Helper()
	g := &gif.GIF{}
	for i, d := range delays {
		frame := image.NewPaletted(image.Rect(0, 0, 16, 16), palette.Plan9)
		if i%2 == 1 {
			for j := range frame.Pix {
				frame.Pix[j] = uint8(frame.Palette.Index(color.White))
			}
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, d)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://example.com/a.png", true},
		{"https://pi-top.com", true},
		{"HTTPS://EXAMPLE.COM/x.gif?size=2", true},
		{"http://localhost:8080/wave.png", true},
		{"http://127.0.0.1:5000/img", true},
		{"ftp://example.com/a.png", true},
		{"wave.png", false},
		{"/home/pi/wave.png", false},
		{"http://", false},
		{"file:///tmp/a.png", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeStillImage(t *testing.T) {
	clip, err := DecodeAnimationClip(pngBytes(t, filled(128, 64, color.White)))
	if err != nil {
		t.Fatalf("DecodeAnimationClip() error = %v", err)
	}
	if clip.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", clip.Len())
	}
	frame, ok := clip.Next()
	if !ok || frame.Duration != 0 {
		t.Fatalf("Next() = %+v, %v", frame, ok)
	}
	if !clip.Finished() {
		t.Error("a still image should be finished after the first read")
	}
	if !allOn(ProcessImage(frame.Image)) {
		t.Error("decoded image lost its pixels")
	}
}

func TestDecodeAnimatedGIF(t *testing.T) {
	clip, err := DecodeAnimationClip(gifBytes(t, 10, 20))
	if err != nil {
		t.Fatalf("DecodeAnimationClip() error = %v", err)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	for i, d := range want {
		frame, ok := clip.Next()
		if !ok {
			t.Fatalf("frame %d missing", i)
		}
		if frame.Duration != d {
			t.Errorf("frame %d duration = %v, want %v", i, frame.Duration, d)
		}
		if frame.Image.Bounds().Size() != image.Pt(16, 16) {
			t.Errorf("frame %d size = %v", i, frame.Image.Bounds())
		}
	}
	if _, ok := clip.Next(); ok {
		t.Error("clip should be finished")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeAnimationClip([]byte("definitely not an image")); err == nil {
		t.Error("expected an error")
	}
}

func TestLoadFromFileAndURL(t *testing.T) {
	raw := pngBytes(t, filled(10, 10, color.White))

	path := filepath.Join(t.TempDir(), "wave.png")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage(path) error = %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Errorf("LoadImage(path) bounds = %v", img.Bounds())
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wave.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(raw)
	}))
	defer server.Close()

	if _, err := LoadImage(server.URL + "/wave.png"); err != nil {
		t.Errorf("LoadImage(url) error = %v", err)
	}
	if _, err := LoadImage(server.URL + "/missing.png"); err == nil {
		t.Error("LoadImage(url) should fail on 404")
	}
}
