package mmu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/gomeboy/internal/apu"
	"github.com/thelolagemann/gomeboy/internal/cartridge"
	"github.com/thelolagemann/gomeboy/internal/dma"
	"github.com/thelolagemann/gomeboy/internal/interrupts"
	"github.com/thelolagemann/gomeboy/internal/joypad"
	"github.com/thelolagemann/gomeboy/internal/ppu"
	"github.com/thelolagemann/gomeboy/internal/serial"
	"github.com/thelolagemann/gomeboy/internal/timer"
	"github.com/thelolagemann/gomeboy/internal/types"
)

type fakeKey1 struct{ v uint8 }

func (f *fakeKey1) ReadKEY1() uint8   { return f.v }
func (f *fakeKey1) WriteKEY1(v uint8) { f.v = v }

func newMMU(t *testing.T, cgb bool) *MMU {
	t.Helper()

	rom := make([]byte, 2*0x4000)
	rom[0x147] = 0x00
	cart, err := cartridge.NewCartridge(rom)
	require.NoError(t, err)

	irq := interrupts.NewService()
	video := ppu.New(irq, nil)
	video.Reset(cgb)
	sound := apu.NewAPU(nil)
	pad := joypad.New(irq)
	port := serial.New(irq, nil)
	clock := timer.NewController(irq)

	m := New(cart, video, sound, nil, clock, port, pad, irq, &fakeKey1{})
	m.DMA = dma.New(m, video, video, cgb)
	m.SetModel(cgb)
	return m
}

func TestEchoRAMIsByteForByteEquivalent(t *testing.T) {
	m := newMMU(t, false)

	for _, addr := range []uint16{0xC000, 0xCDEF, 0xD000, 0xDDFF} {
		m.Write8(addr, 0x99)
		assert.Equalf(t, uint8(0x99), m.Read8(addr+0x2000), "echo read of %04X", addr)
		m.Write8(addr+0x2000, 0x66)
		assert.Equalf(t, uint8(0x66), m.Read8(addr), "write through echo of %04X", addr)
	}
}

func TestUnusableRegionReadsFF(t *testing.T) {
	m := newMMU(t, false)
	for addr := uint16(0xFEA0); addr < 0xFF00; addr++ {
		m.Write8(addr, 0x12)
		require.Equal(t, uint8(0xFF), m.Read8(addr))
	}
}

func TestUnmappedIOReadsFFAndDropsWrites(t *testing.T) {
	m := newMMU(t, false)
	for _, addr := range []uint16{0xFF03, 0xFF08, 0xFF27, 0xFF4C, 0xFF7F} {
		m.Write8(addr, 0x12)
		assert.Equalf(t, uint8(0xFF), m.Read8(addr), "addr %04X", addr)
	}
}

func TestHRAMRoundTrip(t *testing.T) {
	m := newMMU(t, false)
	for addr := uint16(0xFF80); addr < 0xFFFF; addr++ {
		m.Write8(addr, uint8(addr))
		require.Equal(t, uint8(addr), m.Read8(addr))
	}
}

func TestIERegister(t *testing.T) {
	m := newMMU(t, false)
	m.Write8(types.IE, 0x1F)
	assert.Equal(t, uint8(0x1F), m.Read8(types.IE))
}

func TestCGBOnlyRegistersAreGatedOnDMG(t *testing.T) {
	m := newMMU(t, false)
	assert.Equal(t, uint8(0xFF), m.Read8(types.KEY1))
	assert.Equal(t, uint8(0xFF), m.Read8(types.SVBK))
	m.Write8(types.SVBK, 0x03)
	assert.Equal(t, uint8(0xFF), m.Read8(types.SVBK))
}

func TestSVBKSwitchesWRAMBanks(t *testing.T) {
	m := newMMU(t, true)

	m.Write8(types.SVBK, 0x02)
	m.Write8(0xD000, 0x22)
	m.Write8(types.SVBK, 0x03)
	m.Write8(0xD000, 0x33)

	m.Write8(types.SVBK, 0x02)
	assert.Equal(t, uint8(0x22), m.Read8(0xD000))
	m.Write8(types.SVBK, 0x00) // bank 0 aliases to 1
	assert.Equal(t, uint8(0x01), m.Read8(types.SVBK)&0x07)
}

func TestWaveRAMReadBackWhileChannelMuted(t *testing.T) {
	m := newMMU(t, false)
	m.Write8(types.NR52, 0x80)

	for off := uint16(0); off < 16; off++ {
		m.Write8(types.WaveRAMStart+off, uint8(0xA0+off))
		require.Equal(t, uint8(0xA0+off), m.Read8(types.WaveRAMStart+off))
	}
}

func TestKEY1RoutesToCPUOnCGB(t *testing.T) {
	key := &fakeKey1{}
	m := newMMU(t, true)
	m.cpu = key

	m.Write8(types.KEY1, 0x01)
	assert.Equal(t, uint8(0x01), key.v)
}
