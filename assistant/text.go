package assistant

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	RecommendedAnchor = "mm"
	RecommendedAlign  = "center"
)

var ErrInvalidTextOption = errors.New("invalid text option")

// TextOpts tunes RenderText. Zero values select the recommended defaults:
// centred position, "mm" anchor, "center" alignment, 14px and the font
// family matching the size.
type TextOpts struct {
	XY       *image.Point
	FontSize int
	// Font is the path of a TrueType/OpenType file.
	Font string
	// Align is one of "left", "center", "right".
	Align string
	// Anchor is a two letter code: horizontal l/m/r then vertical
	// a/t/m/s/b/d (ascender, top, middle, baseline, bottom, descender).
	Anchor string
	// Fill is the pixel value of the glyphs, on when nil.
	Fill    color.Color
	Spacing int
}

// Assistant renders text with the fonts it was given. Faces are not safe
// for concurrent use, so renders are serialised.
type Assistant struct {
	Fonts *Fonts

	lock sync.Mutex
}

func New(fonts *Fonts) *Assistant {
	if fonts == nil {
		fonts = NewFonts("", "")
	}
	return &Assistant{Fonts: fonts}
}

func (a *Assistant) resolveFont(opts TextOpts) FontHandle {
	size := opts.FontSize
	if size <= 0 {
		size = RecommendedFontSize
	}
	if opts.Font != "" {
		return FontHandle{Path: opts.Font, Size: size}
	}
	return a.Fonts.RecommendedFont(size)
}

// Measurer returns the pixel width function of the font opts would select.
func (a *Assistant) Measurer(opts TextOpts) (func(string) int, error) {
	face, err := a.Fonts.Face(a.resolveFont(opts))
	if err != nil {
		return nil, err
	}
	return func(s string) int {
		return font.MeasureString(face, s).Ceil()
	}, nil
}

// RenderText draws text onto frame. With wrap, text is first reflowed to
// the display width by WordWrap; without it, newlines split lines and
// nothing is reflowed.
func (a *Assistant) RenderText(frame *image1bit.VerticalLSB, text string, wrap bool, opts TextOpts) error {
	xy := Center()
	if opts.XY != nil {
		xy = *opts.XY
	}
	align := opts.Align
	if align == "" {
		align = RecommendedAlign
	}
	anchor := opts.Anchor
	if anchor == "" {
		anchor = RecommendedAnchor
	}
	if err := validateLayout(align, anchor); err != nil {
		return err
	}
	fill := image1bit.On
	if opts.Fill != nil {
		fill = image1bit.BitModel.Convert(opts.Fill).(image1bit.Bit)
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	face, err := a.Fonts.Face(a.resolveFont(opts))
	if err != nil {
		return err
	}
	measure := func(s string) int {
		return font.MeasureString(face, s).Ceil()
	}
	if wrap {
		text = WordWrap(text, Width, measure)
	}
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	lineSpacing := ascent + descent + opts.Spacing

	widths := make([]int, len(lines))
	maxWidth := 0
	for i, line := range lines {
		widths[i] = measure(line)
		if widths[i] > maxWidth {
			maxWidth = widths[i]
		}
	}

	top := float64(xy.Y)
	switch anchor[1] {
	case 'm':
		top -= float64((len(lines)-1)*lineSpacing) / 2
	case 'b', 'd':
		top -= float64((len(lines) - 1) * lineSpacing)
	}
	left := float64(xy.X)
	switch anchor[0] {
	case 'm':
		left -= float64(maxWidth) / 2
	case 'r':
		left -= float64(maxWidth)
	}

	var baselineOffset float64
	switch anchor[1] {
	case 'a', 't':
		baselineOffset = float64(ascent)
	case 'm':
		baselineOffset = float64(ascent-descent) / 2
	case 'b', 'd':
		baselineOffset = -float64(descent)
	}

	ctx := gg.NewContext(Width, Height)
	ctx.SetFontFace(face)
	ctx.SetRGB(1, 1, 1)
	for i, line := range lines {
		x := left
		switch align {
		case "center":
			x += float64(maxWidth-widths[i]) / 2
		case "right":
			x += float64(maxWidth - widths[i])
		}
		ctx.DrawString(line, x, top+float64(i*lineSpacing)+baselineOffset)
	}

	mask := ctx.Image()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if _, _, _, alpha := mask.At(x, y).RGBA(); alpha >= 0x8000 {
				frame.SetBit(x, y, fill)
			}
		}
	}
	return nil
}

func validateLayout(align, anchor string) error {
	switch align {
	case "left", "center", "right":
	default:
		return fmt.Errorf("%w: align %q", ErrInvalidTextOption, align)
	}
	if len(anchor) != 2 || !strings.ContainsRune("lmr", rune(anchor[0])) || !strings.ContainsRune("atmsbd", rune(anchor[1])) {
		return fmt.Errorf("%w: anchor %q", ErrInvalidTextOption, anchor)
	}
	return nil
}
