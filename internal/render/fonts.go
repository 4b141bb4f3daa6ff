package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
)

// FallbackFamily is appended to every requested family list, the way a page
// falls back to its computed font family.
const FallbackFamily = "Go"

type fontKey struct {
	family string
	italic bool
}

// FontBook maps family names to parsed TrueType fonts.
type FontBook struct {
	mu    sync.RWMutex
	fonts map[fontKey]*truetype.Font
	names map[string]string // lowercase -> display name
}

// NewFontBook returns a book preloaded with the Go font families.
func NewFontBook() *FontBook {
	book := &FontBook{fonts: make(map[fontKey]*truetype.Font), names: make(map[string]string)}
	builtin := []struct {
		family string
		italic bool
		ttf    []byte
	}{
		{"Go", false, goregular.TTF},
		{"Go", true, goitalic.TTF},
		{"Go Bold", false, gobold.TTF},
		{"Go Bold", true, gobolditalic.TTF},
		{"Go Medium", false, gomedium.TTF},
		{"Go Medium", true, gomediumitalic.TTF},
		{"Go Mono", false, gomono.TTF},
		{"Go Mono", true, gomonoitalic.TTF},
		{"Go Smallcaps", false, gosmallcaps.TTF},
		{"Go Smallcaps", true, gosmallcapsitalic.TTF},
	}
	for _, b := range builtin {
		if err := book.Register(b.family, b.italic, b.ttf); err != nil {
			panic(err)
		}
	}
	return book
}

func (book *FontBook) Register(family string, italic bool, ttf []byte) error {
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	family = strings.TrimSpace(family)
	book.mu.Lock()
	book.fonts[fontKey{strings.ToLower(family), italic}] = parsed
	book.names[strings.ToLower(family)] = family
	book.mu.Unlock()
	return nil
}

// LoadDir registers every .ttf file in dir under the family name stored in
// the font itself.
func (book *FontBook) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".ttf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return loaded, err
		}
		parsed, err := truetype.Parse(data)
		if err != nil {
			return loaded, fmt.Errorf("parse font %s: %w", entry.Name(), err)
		}
		family := parsed.Name(truetype.NameIDFontFamily)
		if family == "" {
			family = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		italic := strings.Contains(strings.ToLower(parsed.Name(truetype.NameIDFontSubfamily)), "italic")
		book.mu.Lock()
		book.fonts[fontKey{strings.ToLower(family), italic}] = parsed
		book.names[strings.ToLower(family)] = family
		book.mu.Unlock()
		loaded++
	}
	return loaded, nil
}

// Families lists the registered family names.
func (book *FontBook) Families() []string {
	book.mu.RLock()
	defer book.mu.RUnlock()
	out := make([]string, 0, len(book.names))
	for _, name := range book.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FontList composes the selected family with the fallback family.
func FontList(family string) string {
	family = strings.TrimSpace(family)
	if family == "" {
		return FallbackFamily
	}
	return family + ", " + FallbackFamily
}

// Resolve returns the first registered font of a comma separated family
// list. The italic variant is preferred when requested; a family without one
// falls back to its upright face.
func (book *FontBook) Resolve(list string, italic bool) *truetype.Font {
	book.mu.RLock()
	defer book.mu.RUnlock()
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
		if name == "" {
			continue
		}
		if f, ok := book.fonts[fontKey{name, italic}]; ok {
			return f
		}
		if f, ok := book.fonts[fontKey{name, false}]; ok {
			return f
		}
	}
	return book.fonts[fontKey{strings.ToLower(FallbackFamily), italic}]
}

// Face returns a new face for the family list at sizePx pixels.
func (book *FontBook) Face(list string, italic bool, sizePx float64) font.Face {
	return truetype.NewFace(book.Resolve(list, italic), &truetype.Options{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
