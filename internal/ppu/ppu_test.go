package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/gomeboy/internal/interrupts"
	"github.com/thelolagemann/gomeboy/internal/types"
)

type recordingSink struct {
	pixels    int
	refreshes int
	maxX      uint8
	maxY      uint8
}

func (r *recordingSink) PutPixel(x, y uint8, _, _, _ uint8) {
	r.pixels++
	if x > r.maxX {
		r.maxX = x
	}
	if y > r.maxY {
		r.maxY = y
	}
}
func (r *recordingSink) RefreshFrame() { r.refreshes++ }
func (r *recordingSink) Power(bool)    {}

func newPPU(cgb bool) (*PPU, *recordingSink, *interrupts.Service) {
	irq := interrupts.NewService()
	sink := &recordingSink{}
	p := New(irq, sink)
	p.Reset(cgb)
	p.Write(types.LCDC, 0x91)
	return p, sink, irq
}

// tickN drives the PPU one cycle at a time so latched HBlank entries
// are observable mid-call.
func tickN(p *PPU, n int) {
	for n > 255 {
		p.Tick(255)
		n -= 255
	}
	p.Tick(uint8(n))
}

func TestModeTimings(t *testing.T) {
	p, _, _ := newPPU(false)

	require.Equal(t, SearchingOAM, p.mode)
	tickN(p, 80)
	assert.Equal(t, DataTransfer, p.mode)
	tickN(p, 172)
	assert.Equal(t, HBlank, p.mode)
	tickN(p, 204)
	assert.Equal(t, SearchingOAM, p.mode)
	assert.Equal(t, uint8(1), p.ly)
}

func TestFrameIs70224CyclesAnd154Lines(t *testing.T) {
	p, sink, irq := newPPU(false)

	tickN(p, 456*144)
	assert.Equal(t, VBlank, p.mode)
	assert.NotZero(t, irq.Flag&(1<<interrupts.VBlankFlag))
	assert.Equal(t, 1, sink.refreshes)
	assert.Equal(t, 160*144, sink.pixels)
	assert.LessOrEqual(t, sink.maxX, uint8(159))
	assert.LessOrEqual(t, sink.maxY, uint8(143))

	tickN(p, 456*10)
	assert.Equal(t, SearchingOAM, p.mode)
	assert.Equal(t, uint8(0), p.ly)
}

func TestLYCCoincidenceRaisesSTATInterrupt(t *testing.T) {
	p, _, irq := newPPU(false)
	p.Write(types.LYC, 2)
	p.Write(types.STAT, 1<<6)

	tickN(p, 456*2)
	assert.NotZero(t, irq.Flag&(1<<interrupts.LCDFlag))
	assert.NotZero(t, p.Read(types.STAT)&types.Bit2)
}

func TestSTATModeBitsMirrorCurrentMode(t *testing.T) {
	p, _, _ := newPPU(false)
	assert.Equal(t, uint8(SearchingOAM), p.Read(types.STAT)&0x03)
	tickN(p, 80)
	assert.Equal(t, uint8(DataTransfer), p.Read(types.STAT)&0x03)
	tickN(p, 172)
	assert.Equal(t, uint8(HBlank), p.Read(types.STAT)&0x03)
}

func TestVRAMGatedDuringDataTransfer(t *testing.T) {
	p, _, _ := newPPU(false)

	p.Write(types.LCDC, 0x11) // LCD off
	p.WriteVRAM(0x8000, 0x42)
	p.Write(types.LCDC, 0x91)

	tickN(p, 80) // enter DataTransfer
	require.Equal(t, DataTransfer, p.mode)
	p.WriteVRAM(0x8000, 0x99)
	assert.Equal(t, uint8(0xFF), p.ReadVRAM(0x8000))

	tickN(p, 172) // HBlank: accessible again, the gated write never landed
	assert.Equal(t, uint8(0x42), p.ReadVRAM(0x8000))
}

func TestOAMGatedDuringSearchAndTransfer(t *testing.T) {
	p, _, _ := newPPU(false)

	require.Equal(t, SearchingOAM, p.mode)
	p.WriteOAM(0xFE00, 0x13)
	assert.Equal(t, uint8(0xFF), p.ReadOAM(0xFE00))

	tickN(p, 80+172) // HBlank
	p.WriteOAM(0xFE00, 0x13)
	assert.Equal(t, uint8(0x13), p.ReadOAM(0xFE00))
}

func TestOAMGatedDuringOAMDMA(t *testing.T) {
	p, _, _ := newPPU(false)
	tickN(p, 80+172) // HBlank: normally accessible

	active := true
	p.SetOAMDMAActive(func() bool { return active })
	assert.Equal(t, uint8(0xFF), p.ReadOAM(0xFE00))

	// The DMA engine's own write path is never gated.
	p.WriteOAMByte(0, 0x77)
	active = false
	assert.Equal(t, uint8(0x77), p.ReadOAM(0xFE00))
}

func TestLCDOffReadsLYZeroAndRaisesNothing(t *testing.T) {
	p, sink, irq := newPPU(false)
	tickN(p, 456*3)
	require.Equal(t, uint8(3), p.ly)

	p.Write(types.LCDC, 0x11)
	assert.Equal(t, uint8(0), p.Read(types.LY))

	irq.Flag = 0
	before := sink.pixels
	tickN(p, 456*200)
	assert.Zero(t, irq.Flag)
	assert.Equal(t, before, sink.pixels)
}

func TestBCPDAutoIncrement(t *testing.T) {
	p, _, _ := newPPU(true)
	p.Write(types.LCDC, 0x11) // LCD off so palette RAM is accessible

	p.Write(types.BCPS, 0x80) // index 0, auto-increment
	p.Write(types.BCPD, 0xFF)
	p.Write(types.BCPD, 0x7F)
	assert.Equal(t, uint8(0x82), p.Read(types.BCPS)&0xBF)

	// Palette entry 0 colour 0 is now 0x7FFF: every channel reads
	// back 31 and resolves to 255 on screen.
	c := p.bgPalette.GetColour(0, 0)
	assert.Equal(t, [3]uint8{0xFF, 0xFF, 0xFF}, c)

	p.Write(types.BCPS, 0x00)
	assert.Equal(t, uint8(0xFF), p.Read(types.BCPD))
}

func TestCGBColourChannelMapping(t *testing.T) {
	p, _, _ := newPPU(true)
	p.Write(types.LCDC, 0x11)

	// Red = 1 (0x0001): channel value 1 maps to 1*8+7 = 15.
	p.Write(types.BCPS, 0x00)
	p.Write(types.BCPD, 0x01)
	p.Write(types.BCPS, 0x01)
	p.Write(types.BCPD, 0x00)

	c := p.bgPalette.GetColour(0, 0)
	assert.Equal(t, uint8(15), c[0])
	assert.Equal(t, uint8(7), c[1])
	assert.Equal(t, uint8(7), c[2])
}

func TestVBKSelectsBankOnCGBOnly(t *testing.T) {
	cgb, _, _ := newPPU(true)
	cgb.Write(types.LCDC, 0x11)
	cgb.Write(types.VBK, 0x01)
	cgb.WriteVRAM(0x8000, 0xB1)
	cgb.Write(types.VBK, 0x00)
	assert.NotEqual(t, uint8(0xB1), cgb.ReadVRAM(0x8000))
	assert.Equal(t, uint8(0xFE), cgb.Read(types.VBK))

	dmg, _, _ := newPPU(false)
	dmg.Write(types.VBK, 0x01)
	assert.Equal(t, uint8(0xFE), dmg.Read(types.VBK))
}

func TestScanlineSpriteLimit(t *testing.T) {
	p, _, _ := newPPU(false)
	p.Write(types.LCDC, 0x93) // sprites on

	// 12 sprites all covering scanline 0 (Y=16 puts a sprite's top at
	// line 0).
	for i := 0; i < 12; i++ {
		p.oam.Write(uint16(i*4), 16)
		p.oam.Write(uint16(i*4+1), uint8(8+i*8))
	}
	assert.Len(t, p.selectSprites(), 10)

	p.Debug.SpriteLimitDisabled = true
	assert.Len(t, p.selectSprites(), 12)
}

func TestDMGSpritePriorityOrdersByXThenIndex(t *testing.T) {
	p, _, _ := newPPU(false)
	p.Write(types.LCDC, 0x93) // sprites on
	p.oam.Write(0, 16) // sprite 0: Y=16, X=40
	p.oam.Write(1, 40)
	p.oam.Write(4, 16) // sprite 1: Y=16, X=24
	p.oam.Write(5, 24)

	sprites := p.selectSprites()
	require.Len(t, sprites, 2)
	// Front-to-back: the lower-X sprite has higher priority and sorts
	// first (drawn last by the reverse loop).
	assert.Equal(t, uint8(24), sprites[0].X)
	assert.Equal(t, uint8(40), sprites[1].X)
}

func TestSnapshotCopiesDoNotAliasVRAM(t *testing.T) {
	p, _, _ := newPPU(false)
	p.Write(types.LCDC, 0x11)
	p.WriteVRAM(0x9800, 0x42)
	p.WriteVRAM(0x8000, 0x24)

	tileMap, tileData := p.Snapshot()
	assert.Equal(t, uint8(0x42), tileMap[0][0])
	assert.Equal(t, uint8(0x24), tileData[0][0])

	tileMap[0][0] = 0
	tileData[0][0] = 0
	p.Write(types.LCDC, 0x91)
	tickN(p, 80+172)
	assert.Equal(t, uint8(0x42), p.vram[0][0x1800])
}
