package assistant

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

const (
	RegularFontFile        = "Roboto-Regular.ttf"
	MonoFontFile           = "VeraMono.ttf"
	MonoBoldFontFile       = "VeraMoBd.ttf"
	MonoItalicFontFile     = "VeraMoIt.ttf"
	MonoBoldItalicFontFile = "VeraMoBI.ttf"

	DefaultRegularFontDir = "/usr/share/fonts/truetype/roboto/unhinted/RobotoTTF"
	DefaultMonoFontDir    = "/usr/share/fonts/truetype/ttf-bitstream-vera"

	// RecommendedFontSize is the default text size in pixels.
	RecommendedFontSize = 14
	// MonoFontSize is the default size of GetMonoFont.
	MonoFontSize = 11
	// Below this size the monospace family is used.
	regularFontMinSize = 12
)

type Variant int

const (
	RegularVariant Variant = iota
	MonoRegularVariant
	MonoBoldVariant
	MonoItalicVariant
	MonoBoldItalicVariant
)

func (v Variant) String() string {
	switch v {
	case RegularVariant:
		return "regular"
	case MonoRegularVariant:
		return "mono-regular"
	case MonoBoldVariant:
		return "mono-bold"
	case MonoItalicVariant:
		return "mono-italic"
	case MonoBoldItalicVariant:
		return "mono-bold-italic"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// FontHandle names a font file at a given pixel size.
type FontHandle struct {
	Path    string
	Size    int
	Variant Variant
}

type faceKey struct {
	path string
	size int
}

// Fonts resolves the regular and monospace families from two directories
// and caches parsed faces by (path, size).
type Fonts struct {
	RegularDir string
	MonoDir    string

	lock  sync.Mutex
	faces map[faceKey]font.Face
}

func NewFonts(regularDir, monoDir string) *Fonts {
	if regularDir == "" {
		regularDir = DefaultRegularFontDir
	}
	if monoDir == "" {
		monoDir = DefaultMonoFontDir
	}
	return &Fonts{
		RegularDir: regularDir,
		MonoDir:    monoDir,
		faces:      make(map[faceKey]font.Face),
	}
}

func (f *Fonts) RegularFontPath() string {
	return filepath.Join(f.RegularDir, RegularFontFile)
}

func (f *Fonts) MonoFontPath(bold, italics bool) string {
	return filepath.Join(f.MonoDir, monoVariant(bold, italics).file())
}

func monoVariant(bold, italics bool) Variant {
	switch {
	case bold && italics:
		return MonoBoldItalicVariant
	case bold:
		return MonoBoldVariant
	case italics:
		return MonoItalicVariant
	}
	return MonoRegularVariant
}

func (v Variant) file() string {
	switch v {
	case MonoRegularVariant:
		return MonoFontFile
	case MonoBoldVariant:
		return MonoBoldFontFile
	case MonoItalicVariant:
		return MonoItalicFontFile
	case MonoBoldItalicVariant:
		return MonoBoldItalicFontFile
	}
	return RegularFontFile
}

// RecommendedFont picks the regular family from 12px up, monospace below.
func (f *Fonts) RecommendedFont(size int) FontHandle {
	if size <= 0 {
		size = RecommendedFontSize
	}
	if size < regularFontMinSize {
		return FontHandle{Path: f.MonoFontPath(false, false), Size: size, Variant: MonoRegularVariant}
	}
	return FontHandle{Path: f.RegularFontPath(), Size: size, Variant: RegularVariant}
}

func (f *Fonts) RegularFont(size int) FontHandle {
	if size <= 0 {
		size = RecommendedFontSize
	}
	return FontHandle{Path: f.RegularFontPath(), Size: size, Variant: RegularVariant}
}

func (f *Fonts) MonoFont(size int, bold, italics bool) FontHandle {
	if size <= 0 {
		size = MonoFontSize
	}
	return FontHandle{Path: f.MonoFontPath(bold, italics), Size: size, Variant: monoVariant(bold, italics)}
}

// Validate checks that every font file of both families is installed.
func (f *Fonts) Validate() error {
	paths := []string{f.RegularFontPath()}
	for _, v := range []Variant{MonoRegularVariant, MonoBoldVariant, MonoItalicVariant, MonoBoldItalicVariant} {
		paths = append(paths, filepath.Join(f.MonoDir, v.file()))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("missing font %s: %w", p, err)
		}
	}
	return nil
}

// Face returns the parsed face of h, loading it on first use.
func (f *Fonts) Face(h FontHandle) (font.Face, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.faces == nil {
		f.faces = make(map[faceKey]font.Face)
	}
	key := faceKey{path: h.Path, size: h.Size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}

	raw, err := os.ReadFile(h.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to read font %s: %w", h.Path, err)
	}
	parsed, err := opentype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to parse font %s: %w", h.Path, err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(h.Size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create face %s@%d: %w", h.Path, h.Size, err)
	}
	logrus.Debugf("Loaded font %s (%s) at %dpx", h.Path, h.Variant, h.Size)
	f.faces[key] = face
	return face, nil
}
