// Package legend holds the defect categories an inspector can mark up,
// with the label and stroke color used for each.
package legend

import (
	"image/color"

	"quality-master/pkg/colorutil"
)

// Entry is one markup category.
type Entry struct {
	Key   string
	Label string
	Color color.RGBA
}

// Category keys.
const (
	High    = "HIGH"
	Low     = "LOW"
	Sand    = "SAND"
	Bondo   = "BONDO"
	Other   = "OTHER"
	Chip    = "CHIP"
	Scratch = "SCRATCH"
)

var entries = []Entry{
	{Key: High, Label: "High", Color: colorutil.MustParseHex("#ff4da6")},
	{Key: Low, Label: "Low", Color: colorutil.MustParseHex("#ffd400")},
	{Key: Sand, Label: "Needs sanding", Color: colorutil.MustParseHex("#1f77b4")},
	{Key: Bondo, Label: "Needs bondo", Color: colorutil.MustParseHex("#ff7f0e")},
	{Key: Other, Label: "Other", Color: colorutil.MustParseHex("#2ca02c")},
	{Key: Chip, Label: "Chip", Color: colorutil.MustParseHex("#d62728")},
	{Key: Scratch, Label: "Scratch", Color: colorutil.MustParseHex("#9467bd")},
}

// All returns the categories in display order.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup finds a category by key.
func Lookup(key string) (Entry, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Valid reports whether key names a known category.
func Valid(key string) bool {
	_, ok := Lookup(key)
	return ok
}

// ColorFor returns the stroke color for key, or opaque black if the key is
// unknown.
func ColorFor(key string) color.RGBA {
	if e, ok := Lookup(key); ok {
		return e.Color
	}
	return colorutil.Black
}

// Default returns the category selected on a fresh document.
func Default() Entry {
	return entries[0]
}
