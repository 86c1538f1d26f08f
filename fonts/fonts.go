package fonts

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

type FontName string

const (
	HUD      FontName = "hud"
	HUDTitle FontName = "hud-title"
	Status   FontName = "status"
)

func (f FontName) Get() font.Face {
	return getFont(f)
}

var (
	fonts = map[FontName]font.Face{}
)

func LoadFont(name FontName, ttf []byte) error {
	return LoadFontWithSize(name, ttf, 10)
}

func LoadFontWithSize(name FontName, ttf []byte, size float64) error {
	fontData, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", name, err)
	}
	fonts[name] = truetype.NewFace(fontData, &truetype.Options{Size: size})
	return nil
}

// LoadFile loads the HUD faces from a TrueType file. Faces that are never
// loaded fall back to the built-in bitmap face.
func LoadFile(path string) error {
	ttf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font: %w", err)
	}
	if err := LoadFontWithSize(HUD, ttf, 13); err != nil {
		return err
	}
	if err := LoadFontWithSize(HUDTitle, ttf, 18); err != nil {
		return err
	}
	return LoadFontWithSize(Status, ttf, 12)
}

func getFont(name FontName) font.Face {
	f, ok := fonts[name]
	if !ok {
		return basicfont.Face7x13
	}
	return f
}

// LineHeight returns the distance between baselines for face.
func LineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}
