package ppu

// SpriteAttributes holds the four-byte OAM entry decoded into its
// constituent fields, refreshed byte-by-byte as the CPU or OAM-DMA
// writes to OAM.
type SpriteAttributes struct {
	X    uint8
	Y    uint8
	Tile uint8

	// Priority true means the sprite draws behind BG/window colours
	// 1-3 (BG colour 0 is always behind every sprite regardless).
	Priority bool
	FlipY    bool
	FlipX    bool

	// UseSecondPalette selects OBP1 over OBP0 on DMG.
	UseSecondPalette uint8
	// VRAMBank selects the CGB tile-data bank the sprite's tile comes from.
	VRAMBank uint8
	// CGBPalette selects one of the eight CGB object palettes.
	CGBPalette uint8
}

// Update applies one byte of a four-byte OAM entry, identified by its
// offset within the entry (0=Y, 1=X, 2=tile, 3=flags).
func (s *SpriteAttributes) Update(attribute int, value uint8) {
	switch attribute {
	case 0:
		s.Y = value
	case 1:
		s.X = value
	case 2:
		s.Tile = value
	case 3:
		s.Priority = value&0x80 != 0
		s.FlipY = value&0x40 != 0
		s.FlipX = value&0x20 != 0
		if value&0x10 != 0 {
			s.UseSecondPalette = 1
		} else {
			s.UseSecondPalette = 0
		}
		s.VRAMBank = value & 0x08 >> 3
		s.CGBPalette = value & 0x07
	}
}

// Sprite is one of OAM's 40 entries.
type Sprite struct {
	SpriteAttributes
	index int // OAM index, used as the CGB draw-priority tiebreaker
}

// UpdateSprite applies a write at an OAM-relative address (not a byte
// offset within the entry) to this sprite.
func (s *Sprite) UpdateSprite(address uint16, value uint8) {
	s.SpriteAttributes.Update(int(address)%4, value)
}
