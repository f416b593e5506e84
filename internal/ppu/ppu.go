// Package ppu implements the scanline renderer: the four-mode timing
// state machine, background/window/sprite compositing, and the DMG and
// CGB palette models. It has no knowledge of SDL, a frame buffer
// widget or any other concrete display; finished pixels go straight to
// a ports.PixelSink as they're composed.
package ppu

import (
	"github.com/thelolagemann/gomeboy/internal/interrupts"
	"github.com/thelolagemann/gomeboy/internal/ppu/palette"
	"github.com/thelolagemann/gomeboy/internal/types"
	"github.com/thelolagemann/gomeboy/ports"
)

// Mode is one of the PPU's four screen modes.
type Mode uint8

const (
	HBlank Mode = iota
	VBlank
	SearchingOAM
	DataTransfer
)

const (
	oamSearchCycles   = 80
	dataTransferCycle = 172
	hblankCycles      = 204
	cyclesPerLine     = 456
	visibleLines      = 144
	totalLines        = 154

	ScreenWidth  = 160
	ScreenHeight = 144
)

// Debug holds the renderer's operator conveniences: layer toggles and
// the scanline sprite limiter. These are not hardware; the zero value
// is the hardware-faithful configuration (all layers drawn, 10-sprite
// limit applied).
type Debug struct {
	BackgroundDisabled  bool
	WindowDisabled      bool
	SpritesDisabled     bool
	SpriteLimitDisabled bool
}

// PPU renders the background, window and sprite layers scanline by
// scanline and submits the result a pixel at a time to a
// ports.PixelSink, matching real hardware's per-dot pixel pipeline at
// the granularity of one finished scanline.
type PPU struct {
	Debug Debug

	vram [2][0x2000]uint8
	oam  *OAM

	vramBank uint8

	lcdc, stat, scy, scx, ly, lyc, wy, wx uint8
	bgp, obp0, obp1                       uint8

	bgPalette  palette.CGBPalette
	objPalette palette.CGBPalette

	mode        Mode
	dot         uint16
	windowLine  uint8
	hblankLatch bool

	cgb            bool
	compatPalette  bool
	oamDMAActive   func() bool

	irq  *interrupts.Service
	sink ports.PixelSink

	// row/rowPriority are scratch space for one scanline's background
	// colour indices (0-3, pre-palette) and BG-over-sprite priority
	// bits, used to resolve sprite/BG compositing priority.
	row         [ScreenWidth]uint8
	rowPriority [ScreenWidth]bool
}

// New returns a PPU with the LCD off and all registers zeroed, wired
// to irq for STAT/VBlank interrupts and sink for finished pixels.
func New(irq *interrupts.Service, sink ports.PixelSink) *PPU {
	if sink == nil {
		sink = ports.NullPixelSink{}
	}
	p := &PPU{
		oam:        NewOAM(),
		irq:        irq,
		sink:       sink,
		bgPalette:  *palette.NewCGBPallette(),
		objPalette: *palette.NewCGBPallette(),
	}
	return p
}

// Reset reinitializes the PPU for a new cartridge; cgb selects whether
// CGB-only registers/palettes are honored.
func (p *PPU) Reset(cgb bool) {
	*p = PPU{
		Debug:      p.Debug,
		oam:        NewOAM(),
		irq:        p.irq,
		sink:       p.sink,
		cgb:        cgb,
		bgPalette:  *palette.NewCGBPallette(),
		objPalette: *palette.NewCGBPallette(),
		mode:       SearchingOAM,
	}
}

// SetOAMDMAActive lets the PPU consult the DMA controller's transfer
// state when deciding whether OAM reads/writes are gated.
func (p *PPU) SetOAMDMAActive(f func() bool) { p.oamDMAActive = f }

// SetCompatibilityPalette arms the built-in DMG-compatibility BG/OBJ
// palette used when a DMG-only cartridge runs under a CGB model.
func (p *PPU) SetCompatibilityPalette(on bool) { p.compatPalette = on }

func (p *PPU) lcdEnabled() bool { return p.lcdc&types.Bit7 != 0 }

// Tick advances the PPU by cycles T-states, running the mode state
// machine and, at the end of DataTransfer, composing scanline LY into
// the frame buffer.
func (p *PPU) Tick(cycles uint8) {
	if !p.lcdEnabled() {
		return
	}
	for i := uint8(0); i < cycles; i++ {
		p.tickOnce()
	}
}

func (p *PPU) tickOnce() {
	p.dot++

	switch p.mode {
	case SearchingOAM:
		if p.dot == oamSearchCycles {
			p.dot = 0
			p.setMode(DataTransfer)
		}
	case DataTransfer:
		if p.dot == dataTransferCycle {
			p.dot = 0
			p.renderLine()
			p.setMode(HBlank)
		}
	case HBlank:
		if p.dot == hblankCycles {
			p.dot = 0
			p.ly++
			p.checkLYC()
			if p.ly == visibleLines {
				p.setMode(VBlank)
				p.irq.Request(interrupts.VBlankFlag)
				p.sink.RefreshFrame()
			} else {
				p.setMode(SearchingOAM)
			}
		}
	case VBlank:
		if p.dot == cyclesPerLine {
			p.dot = 0
			p.ly++
			if p.ly == totalLines {
				p.ly = 0
				p.windowLine = 0
				p.setMode(SearchingOAM)
			}
			p.checkLYC()
		}
	}
}

func (p *PPU) setMode(m Mode) {
	p.mode = m
	if m == HBlank {
		p.hblankLatch = true
	}
	statSource := -1
	switch m {
	case HBlank:
		statSource = 3
	case VBlank:
		statSource = 4
	case SearchingOAM:
		statSource = 5
	}
	if statSource >= 0 && p.stat&(1<<uint(statSource)) != 0 {
		p.irq.Request(interrupts.LCDFlag)
	}
}

func (p *PPU) checkLYC() {
	if p.ly == p.lyc {
		if p.stat&types.Bit6 != 0 {
			p.irq.Request(interrupts.LCDFlag)
		}
	}
}

// EnteredHBlank reports whether the PPU entered HBlank at any point
// since the last call, consuming the latch. The System uses it to
// notify an armed HDMA transfer once per HBlank entry.
func (p *PPU) EnteredHBlank() bool {
	v := p.hblankLatch
	p.hblankLatch = false
	return v
}

// renderLine composes scanline ly: background, then window, then
// sprites, writing each finished pixel to the sink.
func (p *PPU) renderLine() {
	if p.Debug.BackgroundDisabled {
		for x := uint8(0); x < ScreenWidth; x++ {
			p.row[x] = 0
			p.rowPriority[x] = false
			r, g, b := p.dmgColour(p.bgp, 0)
			p.putPixel(x, r, g, b)
		}
	} else {
		p.renderBackground()
	}
	if !p.Debug.WindowDisabled {
		p.renderWindow()
	}
	if !p.Debug.SpritesDisabled {
		p.renderSprites()
	}
}

func (p *PPU) bgTileMapBase(windowMap bool) uint16 {
	bit := types.Bit3
	if windowMap {
		bit = types.Bit6
	}
	if p.lcdc&bit != 0 {
		return 0x9C00
	}
	return 0x9800
}

// tileDataAddr resolves a tile index to its VRAM address within the
// selected tile data block, honoring LCDC bit 4's addressing mode.
func (p *PPU) tileDataAddr(index uint8, line uint8) uint16 {
	if p.lcdc&types.Bit4 != 0 {
		return uint16(index)*16 + uint16(line)*2
	}
	return uint16(0x1000+int16(int8(index))*16) + uint16(line)*2
}

func (p *PPU) vramRead(bank uint8, addr uint16) uint8 {
	return p.vram[bank][addr&0x1FFF]
}

type bgAttr struct {
	palette  uint8
	bank     uint8
	flipX    bool
	flipY    bool
	priority bool
}

func (p *PPU) readBGAttr(mapAddr uint16) bgAttr {
	if !p.cgb {
		return bgAttr{}
	}
	v := p.vramRead(1, mapAddr-0x8000)
	return bgAttr{
		palette:  v & 0x07,
		bank:     v >> 3 & 0x01,
		flipX:    v&types.Bit5 != 0,
		flipY:    v&types.Bit6 != 0,
		priority: v&types.Bit7 != 0,
	}
}

func (p *PPU) renderBackground() {
	if !p.cgb && p.lcdc&types.Bit0 == 0 {
		// DMG: BG/window disabled entirely; colour index 0 everywhere.
		for x := uint8(0); x < ScreenWidth; x++ {
			p.row[x] = 0
			p.rowPriority[x] = false
			r, g, b := p.dmgColour(p.bgp, 0)
			p.putPixel(x, r, g, b)
		}
		return
	}

	mapBase := p.bgTileMapBase(false)
	y := p.ly + p.scy
	tileRow := y / 8
	lineInTile := y % 8

	for x := uint8(0); x < ScreenWidth; x++ {
		bx := x + p.scx
		tileCol := bx / 8
		mapAddr := mapBase + uint16(tileRow)*32 + uint16(tileCol)
		attr := p.readBGAttr(mapAddr)

		index := p.vramRead(0, mapAddr-0x8000)
		line := lineInTile
		if attr.flipY {
			line = 7 - line
		}
		tileAddr := p.tileDataAddr(index, line)
		lo := p.vramRead(attr.bank, tileAddr)
		hi := p.vramRead(attr.bank, tileAddr+1)

		bit := 7 - bx%8
		if attr.flipX {
			bit = bx % 8
		}
		colour := (hi>>bit&1)<<1 | lo>>bit&1

		p.row[x] = colour
		p.rowPriority[x] = attr.priority
		r, g, b := p.resolveBGColour(colour, attr)
		p.putPixel(x, r, g, b)
	}
}

func (p *PPU) renderWindow() {
	if p.lcdc&types.Bit5 == 0 {
		return
	}
	// DMG: LCDC bit 0 clear blanks the window along with the background.
	if !p.cgb && p.lcdc&types.Bit0 == 0 {
		return
	}
	if p.ly < p.wy {
		return
	}
	wx := int16(p.wx) - 7
	if wx >= ScreenWidth {
		return
	}

	mapBase := p.bgTileMapBase(true)
	tileRow := p.windowLine / 8
	lineInTile := p.windowLine % 8
	drew := false

	for x := int16(0); x < ScreenWidth; x++ {
		wxPos := x - wx
		if wxPos < 0 {
			continue
		}
		drew = true
		tileCol := uint8(wxPos) / 8
		mapAddr := mapBase + uint16(tileRow)*32 + uint16(tileCol)
		attr := p.readBGAttr(mapAddr)

		index := p.vramRead(0, mapAddr-0x8000)
		line := lineInTile
		if attr.flipY {
			line = 7 - line
		}
		tileAddr := p.tileDataAddr(index, line)
		lo := p.vramRead(attr.bank, tileAddr)
		hi := p.vramRead(attr.bank, tileAddr+1)

		bit := 7 - uint8(wxPos)%8
		if attr.flipX {
			bit = uint8(wxPos) % 8
		}
		colour := (hi>>bit&1)<<1 | lo>>bit&1

		p.row[x] = colour
		p.rowPriority[x] = attr.priority
		r, g, b := p.resolveBGColour(colour, attr)
		p.putPixel(uint8(x), r, g, b)
	}
	if drew {
		p.windowLine++
	}
}

func (p *PPU) spriteHeight() uint8 {
	if p.lcdc&types.Bit2 != 0 {
		return 16
	}
	return 8
}

// selectSprites returns the sprites visible on the current scanline,
// ordered front-to-back (highest priority first); renderSprites draws
// them in reverse.
func (p *PPU) selectSprites() []*Sprite {
	if p.lcdc&types.Bit1 == 0 {
		return nil
	}
	height := p.spriteHeight()

	var visible []*Sprite
	for _, s := range p.oam.Sprites {
		top := int16(s.Y) - 16
		if int16(p.ly) < top || int16(p.ly) >= top+int16(height) {
			continue
		}
		visible = append(visible, s)
		if len(visible) == 10 && !p.Debug.SpriteLimitDisabled {
			break
		}
	}

	// Sort by descending draw priority (highest priority first); the
	// reverse loop in renderSprites paints higher-priority sprites last.
	for i := 1; i < len(visible); i++ {
		j := i
		for j > 0 && p.spriteLess(visible[j], visible[j-1]) {
			visible[j], visible[j-1] = visible[j-1], visible[j]
			j--
		}
	}
	return visible
}

// spriteLess reports whether a has strictly higher draw priority than
// b (should be drawn after, i.e. on top of, b).
func (p *PPU) spriteLess(a, b *Sprite) bool {
	if !p.cgb && a.X != b.X {
		return a.X < b.X
	}
	return a.index < b.index
}

func (p *PPU) renderSprites() {
	sprites := p.selectSprites()
	if len(sprites) == 0 {
		return
	}
	height := p.spriteHeight()

	// Draw back-to-front: reverse iterate so the front-most sprite in
	// visible (lowest index) paints last and wins ties.
	for i := len(sprites) - 1; i >= 0; i-- {
		s := sprites[i]
		top := int16(s.Y) - 16
		line := uint8(int16(p.ly) - top)
		if s.FlipY {
			line = height - 1 - line
		}
		tile := s.Tile
		if height == 16 {
			tile &^= 0x01
			if line >= 8 {
				tile |= 0x01
				line -= 8
			}
		}

		bank := uint8(0)
		if p.cgb {
			bank = s.VRAMBank
		}
		tileAddr := uint16(tile)*16 + uint16(line)*2
		lo := p.vramRead(bank, tileAddr)
		hi := p.vramRead(bank, tileAddr+1)

		for sx := uint8(0); sx < 8; sx++ {
			x := int16(s.X) - 8 + int16(sx)
			if x < 0 || x >= ScreenWidth {
				continue
			}
			bit := 7 - sx
			if s.FlipX {
				bit = sx
			}
			colour := (hi>>bit&1)<<1 | lo>>bit&1
			if colour == 0 {
				continue
			}

			// Sprite pixel draws unless the BG pixel is non-zero and
			// either the sprite or the BG tile attribute claims
			// priority over it, with the CGB master BG-priority
			// override (LCDC bit 0 clear) always letting sprites win.
			masterOverride := p.cgb && p.lcdc&types.Bit0 == 0
			bgColour := p.row[x]
			if !masterOverride && bgColour != 0 && (s.Priority || p.rowPriority[x]) {
				continue
			}

			r, g, b := p.resolveObjColour(colour, s)
			p.putPixel(uint8(x), r, g, b)
		}
	}
}

func (p *PPU) resolveBGColour(colour uint8, attr bgAttr) (r, g, b uint8) {
	if p.cgb {
		c := p.bgPalette.GetColour(attr.palette, colour)
		return c[0], c[1], c[2]
	}
	return p.dmgColour(p.bgp, colour)
}

func (p *PPU) resolveObjColour(colour uint8, s *Sprite) (r, g, b uint8) {
	if p.cgb {
		c := p.objPalette.GetColour(s.CGBPalette, colour)
		return c[0], c[1], c[2]
	}
	pal := p.obp0
	if s.UseSecondPalette == 1 {
		pal = p.obp1
	}
	return p.dmgColour(pal, colour)
}

// dmgColour resolves a two-bit colour index through a BGP/OBPn-style
// palette byte (four two-bit shades packed low to high). A DMG-only
// cartridge running on a CGB model keeps this path but colorizes the
// shades through the built-in compatibility palette.
func (p *PPU) dmgColour(pal uint8, colour uint8) (r, g, b uint8) {
	shade := pal >> (colour * 2) & 0x03
	var c [3]uint8
	if p.compatPalette {
		c = palette.Compat.Colour(shade)
	} else {
		c = palette.Greyscale.Colour(shade)
	}
	return c[0], c[1], c[2]
}

func (p *PPU) putPixel(x uint8, r, g, b uint8) {
	p.sink.PutPixel(x, p.ly, r, g, b)
}

// Snapshot returns copies of the active background tile map (32 rows
// of 32 pattern indices) and each VRAM bank's raw tile pattern data.
// Hosts use it for tile-map/tile-data viewers; it never aliases live
// VRAM.
func (p *PPU) Snapshot() (tileMap [][]uint8, tileData [][]uint8) {
	mapBase := p.bgTileMapBase(false) - 0x8000
	tileMap = make([][]uint8, 32)
	for row := 0; row < 32; row++ {
		line := make([]uint8, 32)
		copy(line, p.vram[0][mapBase+uint16(row)*32:mapBase+uint16(row)*32+32])
		tileMap[row] = line
	}
	banks := 1
	if p.cgb {
		banks = 2
	}
	tileData = make([][]uint8, banks)
	for b := 0; b < banks; b++ {
		data := make([]uint8, 0x1800)
		copy(data, p.vram[b][:0x1800])
		tileData[b] = data
	}
	return tileMap, tileData
}

// vramAccessible reports whether the CPU may currently read/write VRAM.
func (p *PPU) vramAccessible() bool {
	return !p.lcdEnabled() || p.mode != DataTransfer
}

// oamAccessible reports whether the CPU may currently read/write OAM.
func (p *PPU) oamAccessible() bool {
	if p.oamDMAActive != nil && p.oamDMAActive() {
		return false
	}
	return !p.lcdEnabled() || (p.mode != SearchingOAM && p.mode != DataTransfer)
}

// ReadVRAM performs a CPU-initiated VRAM read, gated by the current mode.
func (p *PPU) ReadVRAM(addr uint16) uint8 {
	if !p.vramAccessible() {
		return 0xFF
	}
	return p.vram[p.vramBank][addr&0x1FFF]
}

// WriteVRAM performs a CPU-initiated VRAM write, gated by the current mode.
func (p *PPU) WriteVRAM(addr uint16, value uint8) {
	if !p.vramAccessible() {
		return
	}
	p.vram[p.vramBank][addr&0x1FFF] = value
}

// WriteVRAMByte is DMA's unconditional VRAM write path (GDMA/HDMA are
// never gated by PPU mode).
func (p *PPU) WriteVRAMByte(addr uint16, value uint8) {
	p.vram[p.vramBank][addr&0x1FFF] = value
}

// ReadOAM performs a CPU-initiated OAM read, gated by the current mode.
func (p *PPU) ReadOAM(addr uint16) uint8 {
	if !p.oamAccessible() {
		return 0xFF
	}
	return p.oam.Read(addr & 0xFF)
}

// WriteOAM performs a CPU-initiated OAM write, gated by the current mode.
func (p *PPU) WriteOAM(addr uint16, value uint8) {
	if !p.oamAccessible() {
		return
	}
	p.oam.Write(addr&0xFF, value)
}

// WriteOAMByte is OAM-DMA's unconditional write path.
func (p *PPU) WriteOAMByte(offset uint8, value uint8) {
	p.oam.Write(uint16(offset), value)
}

// Read services a PPU I/O register read.
func (p *PPU) Read(addr types.HardwareAddress) uint8 {
	switch addr {
	case types.LCDC:
		return p.lcdc
	case types.STAT:
		stat := p.stat&0x78 | 0x80
		if p.ly == p.lyc {
			stat |= types.Bit2
		}
		if p.lcdEnabled() {
			stat |= uint8(p.mode)
		}
		return stat
	case types.SCY:
		return p.scy
	case types.SCX:
		return p.scx
	case types.LY:
		if !p.lcdEnabled() {
			return 0
		}
		return p.ly
	case types.LYC:
		return p.lyc
	case types.BGP:
		return p.bgp
	case types.OBP0:
		return p.obp0
	case types.OBP1:
		return p.obp1
	case types.WY:
		return p.wy
	case types.WX:
		return p.wx
	case types.VBK:
		return p.vramBank | 0xFE
	case types.BCPS:
		return p.bgPalette.GetIndex() | 0x40
	case types.BCPD:
		if p.mode == DataTransfer {
			return 0xFF
		}
		return p.bgPalette.Read()
	case types.OCPS:
		return p.objPalette.GetIndex() | 0x40
	case types.OCPD:
		if p.mode == DataTransfer {
			return 0xFF
		}
		return p.objPalette.Read()
	}
	return 0xFF
}

// Write services a PPU I/O register write.
func (p *PPU) Write(addr types.HardwareAddress, value uint8) {
	switch addr {
	case types.LCDC:
		wasOn := p.lcdEnabled()
		p.lcdc = value
		if wasOn && !p.lcdEnabled() {
			p.ly = 0
			p.dot = 0
			p.mode = HBlank
			p.sink.Power(false)
		} else if !wasOn && p.lcdEnabled() {
			p.mode = SearchingOAM
			p.sink.Power(true)
		}
	case types.STAT:
		p.stat = value & 0x78
	case types.SCY:
		p.scy = value
	case types.SCX:
		p.scx = value
	case types.LYC:
		p.lyc = value
	case types.BGP:
		p.bgp = value
	case types.OBP0:
		p.obp0 = value
	case types.OBP1:
		p.obp1 = value
	case types.WY:
		p.wy = value
	case types.WX:
		p.wx = value
	case types.VBK:
		if p.cgb {
			p.vramBank = value & 0x01
		}
	case types.BCPS:
		p.bgPalette.SetIndex(value)
	case types.BCPD:
		if p.mode != DataTransfer {
			p.bgPalette.Write(value)
		}
	case types.OCPS:
		p.objPalette.SetIndex(value)
	case types.OCPD:
		if p.mode != DataTransfer {
			p.objPalette.Write(value)
		}
	}
}
