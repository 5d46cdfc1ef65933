// Package fonttest installs the Go fonts under the miniscreen font file
// names, for tests that render text.
package fonttest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pi-top/miniscreen/assistant"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

func Install(t testing.TB) *assistant.Fonts {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		assistant.RegularFontFile:        goregular.TTF,
		assistant.MonoFontFile:           gomono.TTF,
		assistant.MonoBoldFontFile:       gomonobold.TTF,
		assistant.MonoItalicFontFile:     gomonoitalic.TTF,
		assistant.MonoBoldItalicFontFile: gomonobolditalic.TTF,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return assistant.NewFonts(dir, dir)
}
