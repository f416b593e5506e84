package dma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatBus struct {
	mem [0x10000]uint8
}

func (f *flatBus) Read8(addr uint16) uint8 { return f.mem[addr] }

type recordingOAM struct {
	data [160]uint8
	hits int
}

func (r *recordingOAM) WriteOAMByte(offset uint8, value uint8) {
	r.data[offset] = value
	r.hits++
}

type recordingVRAM struct {
	data [0x2000]uint8
}

func (r *recordingVRAM) WriteVRAMByte(addr uint16, value uint8) {
	r.data[addr&0x1FFF] = value
}

func newController(cgb bool) (*Controller, *flatBus, *recordingOAM, *recordingVRAM) {
	bus := &flatBus{}
	oam := &recordingOAM{}
	vram := &recordingVRAM{}
	return New(bus, oam, vram, cgb), bus, oam, vram
}

func TestOAMDMA_Copies160BytesOver648Cycles(t *testing.T) {
	c, bus, oam, _ := newController(false)
	for i := 0; i < 160; i++ {
		bus.mem[0xC000+i] = uint8(i)
	}

	c.WriteOAMDMA(0xC0)
	require.True(t, c.IsOAMTransferring() || oam.hits == 0)

	c.Tick(255)
	c.Tick(255)
	c.Tick(138) // 648 total
	assert.Equal(t, 160, oam.hits)
	assert.False(t, c.IsOAMTransferring())
	for i := 0; i < 160; i++ {
		require.Equal(t, uint8(i), oam.data[i])
	}
}

func TestOAMDMA_HighSourceRewritesToWRAM(t *testing.T) {
	c, bus, oam, _ := newController(false)
	bus.mem[0xDE00] = 0x42

	c.WriteOAMDMA(0xFE) // sources above 0xFDFF read WRAM instead
	c.Tick(255)
	c.Tick(255)
	c.Tick(138)
	assert.Equal(t, uint8(0x42), oam.data[0])
}

func TestGDMA_CopiesImmediatelyAndChargesStall(t *testing.T) {
	c, bus, _, vram := newController(true)
	for i := 0; i < 32; i++ {
		bus.mem[0x4000+i] = uint8(i + 1)
	}

	c.WriteHDMA1(0x40)
	c.WriteHDMA2(0x00)
	c.WriteHDMA3(0x00)
	c.WriteHDMA4(0x00)
	c.WriteHDMA5(0x01) // GDMA, 2 blocks

	for i := 0; i < 32; i++ {
		require.Equal(t, uint8(i+1), vram.data[i])
	}
	assert.Equal(t, uint32(4+32*2), c.ConsumeStall())
	assert.Zero(t, c.ConsumeStall())
	assert.Equal(t, uint8(0xFF), c.ReadHDMA5())
}

func TestHDMA_OneBlockPerHBlank(t *testing.T) {
	c, bus, _, vram := newController(true)
	for i := 0; i < 48; i++ {
		bus.mem[0x4000+i] = 0xAA
	}

	c.WriteHDMA1(0x40)
	c.WriteHDMA2(0x00)
	c.WriteHDMA3(0x00)
	c.WriteHDMA4(0x00)
	c.WriteHDMA5(0x82) // HDMA, 3 blocks

	assert.False(t, c.HDMABlocked())
	assert.Equal(t, uint8(0x02), c.ReadHDMA5())

	c.OnHBlank()
	require.True(t, c.HDMABlocked())
	c.HDMATick(16)
	assert.False(t, c.HDMABlocked())
	assert.Equal(t, uint8(0xAA), vram.data[15])
	assert.Equal(t, uint8(0x00), vram.data[16])
	assert.Equal(t, uint8(0x01), c.ReadHDMA5())

	c.OnHBlank()
	c.HDMATick(16)
	c.OnHBlank()
	c.HDMATick(16)
	assert.Equal(t, uint8(0xAA), vram.data[47])
	assert.Equal(t, uint8(0xFF), c.ReadHDMA5())

	// A later HBlank with nothing left is a no-op.
	c.OnHBlank()
	assert.False(t, c.HDMABlocked())
}

func TestHDMA_CancelMidTransfer(t *testing.T) {
	c, _, _, _ := newController(true)

	c.WriteHDMA5(0x84) // HDMA, 5 blocks
	c.WriteHDMA5(0x00) // bit 7 clear while active: cancel, not GDMA
	assert.False(t, c.HDMABlocked())
	assert.Equal(t, uint8(0x84), c.ReadHDMA5())
}

func TestHDMA5Registers_MaskSourceAndDestination(t *testing.T) {
	c, bus, _, vram := newController(true)
	bus.mem[0x4120] = 0x5A

	c.WriteHDMA1(0x41)
	c.WriteHDMA2(0x2F) // low 4 bits dropped -> 0x20
	c.WriteHDMA3(0xFF) // masked to 0x1F
	c.WriteHDMA4(0x3F) // low 4 bits dropped -> 0x30
	c.WriteHDMA5(0x00) // GDMA, 1 block

	assert.Equal(t, uint8(0x5A), vram.data[0x1F30&0x1FFF])
}

func TestReadHDMA5_DMGAlwaysFF(t *testing.T) {
	c, _, _, _ := newController(false)
	assert.Equal(t, uint8(0xFF), c.ReadHDMA5())
}
