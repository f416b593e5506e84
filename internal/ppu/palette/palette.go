// Package palette resolves pixel colour indices to RGB: the fixed DMG
// shade tables here, and the CGB's writable palette memory in
// CGBPalette.
package palette

// Palette maps the four DMG shade indices to RGB.
type Palette struct {
	Colors [4][3]uint8
}

// Colour returns the RGB triple for a shade index (0 lightest).
func (p Palette) Colour(index uint8) [3]uint8 {
	return p.Colors[index]
}

// Greyscale is the plain monochrome rendering used for DMG mode.
var Greyscale = Palette{
	Colors: [4][3]uint8{
		{0xFF, 0xFF, 0xFF},
		{0xCC, 0xCC, 0xCC},
		{0x77, 0x77, 0x77},
		{0x00, 0x00, 0x00},
	},
}

// Compat is the fixed green colorization applied when a DMG-only
// cartridge runs on a CGB model, approximating the original handheld's
// screen tint.
var Compat = Palette{
	Colors: [4][3]uint8{
		{0x9B, 0xBC, 0x0F},
		{0x8B, 0xAC, 0x0F},
		{0x30, 0x62, 0x30},
		{0x0F, 0x38, 0x0F},
	},
}
