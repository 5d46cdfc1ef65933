package assistant

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

var urlRegexp = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// IsURL reports whether s looks like a remote image location rather than a
// local path.
func IsURL(s string) bool {
	return urlRegexp.MatchString(s)
}

// ReadImageSource returns the raw bytes of a local file or of an http(s)
// URL.
func ReadImageSource(pathOrURL string) ([]byte, error) {
	if !IsURL(pathOrURL) {
		return os.ReadFile(pathOrURL)
	}
	resp, err := httpClient.Get(pathOrURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch %s: %s", pathOrURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// LoadImage reads and decodes a PNG, JPEG or GIF from a path or URL. Only
// the first frame of an animation is returned.
func LoadImage(pathOrURL string) (image.Image, error) {
	clip, err := LoadAnimationClip(pathOrURL)
	if err != nil {
		return nil, err
	}
	return clip.First(), nil
}

// LoadAnimationClip reads a path or URL into a clip. Animated GIFs give
// one composited frame per GIF frame; other formats give a single frame.
func LoadAnimationClip(pathOrURL string) (*AnimationClip, error) {
	raw, err := ReadImageSource(pathOrURL)
	if err != nil {
		return nil, err
	}
	return DecodeAnimationClip(raw)
}

// DecodeAnimationClip decodes raw image bytes. The data is checked on a
// copy before the real decode.
func DecodeAnimationClip(raw []byte) (*AnimationClip, error) {
	if err := verify(raw); err != nil {
		return nil, err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if format != "gif" {
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		return StillClip(img), nil
	}

	g, err := gif.DecodeAll(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return NewAnimationClip(gifFrames(g)...), nil
}

func verify(raw []byte) error {
	probe := make([]byte, len(raw))
	copy(probe, raw)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(probe))
	if err != nil {
		return fmt.Errorf("unable to identify image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	return nil
}

// gifFrames composites each GIF frame over its predecessors according to
// the disposal method, so every clip frame is a full picture.
func gifFrames(g *gif.GIF) []ClipFrame {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() && len(g.Image) > 0 {
		bounds = g.Image[0].Bounds()
	}
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.Transparent)

	frames := make([]ClipFrame, 0, len(g.Image))
	for i, src := range g.Image {
		var previous *image.NRGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)

		delay := 0
		if i < len(g.Delay) {
			delay = g.Delay[i]
		}
		frames = append(frames, ClipFrame{
			Image:    imaging.Clone(canvas),
			Duration: time.Duration(delay) * 10 * time.Millisecond,
		})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return frames
}
