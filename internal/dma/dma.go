// Package dma implements the three transfer engines the Game Boy's DMA
// controller exposes: OAM-DMA (copies 160 bytes into OAM, triggered by
// a write to FF46), and the CGB's general-purpose and HBlank-gated VRAM
// transfers (GDMA/HDMA, triggered through HDMA1-5). OAM-DMA is driven
// by Tick, fed the same CPU T-state count every other component
// receives; a GDMA copies all of its blocks inside the HDMA5 write and
// leaves its cost in ConsumeStall; an HDMA copies one block after each
// OnHBlank, advanced by HDMATick. None of them touch the scheduler or a global
// register table, only the narrow Bus/OAMWriter/VRAMWriter handles
// they're constructed with.
package dma

// Bus is the general read access a transfer engine needs to pull bytes
// from cartridge ROM/RAM or WRAM.
type Bus interface {
	Read8(addr uint16) uint8
}

// OAMWriter receives OAM-DMA's output.
type OAMWriter interface {
	WriteOAMByte(offset uint8, value uint8)
}

// VRAMWriter receives GDMA/HDMA's output, relative to the current VRAM
// bank (0x0000-0x1FFF).
type VRAMWriter interface {
	WriteVRAMByte(addr uint16, value uint8)
}

// Controller owns OAM-DMA and GDMA/HDMA transfer state.
type Controller struct {
	bus  Bus
	oam  OAMWriter
	vram VRAMWriter
	cgb  bool

	oamTimer      uint16
	oamSource     uint16
	oamActive     bool
	oamRestarting bool

	hdmaSource      uint16
	hdmaDestination uint16
	hdmaMode        uint8 // 0 = GDMA, 1 = HDMA
	hdmaBlocksLeft  uint8 // remaining 16-byte blocks minus one, 0-127
	hdmaRequested   bool  // an HDMA transfer is armed, waiting for HBlank
	hdmaCopying     bool  // actively streaming bytes this tick
	hdmaDone        bool  // last transfer (either kind) ran to completion

	// stallCycles is the CPU time a just-completed GDMA owes: 4 setup
	// cycles plus 32 per block, charged by the composition root after
	// the HDMA5 write returns. GDMA time never scales with the CGB
	// double-speed mode.
	stallCycles uint32
}

// New returns a Controller with no transfer in progress.
func New(bus Bus, oam OAMWriter, vram VRAMWriter, cgb bool) *Controller {
	return &Controller{bus: bus, oam: oam, vram: vram, cgb: cgb, hdmaDone: true}
}

// Reset reinitializes the controller for a new cartridge.
func (c *Controller) Reset(cgb bool) {
	*c = Controller{bus: c.bus, oam: c.oam, vram: c.vram, cgb: cgb, hdmaDone: true}
}

// IsOAMTransferring reports whether OAM-DMA currently owns the bus;
// the PPU consults this to decide whether CPU-initiated OAM reads
// should be honored or return 0xFF.
func (c *Controller) IsOAMTransferring() bool {
	return c.oamTimer > 4 || c.oamRestarting
}

// WriteOAMDMA starts (or restarts) an OAM-DMA transfer from
// value<<8.
func (c *Controller) WriteOAMDMA(value uint8) {
	c.oamSource = uint16(value) << 8
	c.oamTimer = 0
	c.oamRestarting = c.oamActive
	c.oamActive = true
}

// ReadOAMDMA returns the last value written to FF46.
func (c *Controller) ReadOAMDMA() uint8 { return uint8(c.oamSource >> 8) }

// Tick advances OAM-DMA by cycles T-states.
func (c *Controller) Tick(cycles uint8) {
	for i := uint8(0); i < cycles; i++ {
		c.tickOAMOnce()
	}
}

func (c *Controller) tickOAMOnce() {
	if !c.oamActive {
		return
	}
	c.oamTimer++
	if c.oamTimer <= 4 {
		return
	}
	c.oamRestarting = false

	step := c.oamTimer - 4 - 1
	offset := step >> 2
	if offset >= 160 {
		c.oamActive = false
		c.oamTimer = 0
		return
	}
	if step&3 != 0 {
		return
	}
	src := c.oamSource + offset
	if src >= 0xFE00 {
		src -= 0x2000
	}
	c.oam.WriteOAMByte(uint8(offset), c.bus.Read8(src))
}

// HDMABlocked reports whether an HDMA/GDMA copy is consuming CPU
// cycles this tick; the composition root must not execute an
// instruction while this is true.
func (c *Controller) HDMABlocked() bool { return c.hdmaCopying }

// HDMATick advances an in-progress GDMA/HDMA copy by up to cycles
// bytes (one byte per T-state, matching a single-speed VRAM transfer;
// the caller halves cycles for CGB double-speed mode along with every
// other peripheral).
func (c *Controller) HDMATick(cycles uint8) {
	for i := uint8(0); i < cycles && c.hdmaCopying; i++ {
		c.copyByte()
	}
}

func (c *Controller) copyByte() {
	c.vram.WriteVRAMByte(c.hdmaDestination&0x1FFF, c.bus.Read8(c.hdmaSource))
	c.hdmaSource++
	c.hdmaDestination++

	if c.hdmaDestination&0xF == 0 {
		if c.hdmaBlocksLeft == 0 {
			c.hdmaCopying = false
			c.hdmaDone = true
			return
		}
		c.hdmaBlocksLeft--
		if c.hdmaMode == 1 {
			// HDMA copies one 16-byte block per HBlank and waits.
			c.hdmaCopying = false
		}
	}
}

// OnHBlank is called by the PPU whenever it enters HBlank; an armed
// HDMA transfer copies its next 16-byte block.
func (c *Controller) OnHBlank() {
	if c.hdmaMode == 1 && c.hdmaRequested && !c.hdmaDone {
		c.hdmaCopying = true
	}
}

// WriteHDMA1 sets the high byte of the transfer source.
func (c *Controller) WriteHDMA1(v uint8) {
	c.hdmaSource = c.hdmaSource&0x00FF | uint16(v)<<8
}

// WriteHDMA2 sets the low byte of the transfer source; the low 4 bits
// are always zero.
func (c *Controller) WriteHDMA2(v uint8) {
	c.hdmaSource = c.hdmaSource&0xFF00 | uint16(v&0xF0)
}

// WriteHDMA3 sets the high byte of the transfer destination.
func (c *Controller) WriteHDMA3(v uint8) {
	c.hdmaDestination = c.hdmaDestination&0x00FF | uint16(v&0x1F)<<8
}

// WriteHDMA4 sets the low byte of the transfer destination; the low 4
// bits are always zero.
func (c *Controller) WriteHDMA4(v uint8) {
	c.hdmaDestination = c.hdmaDestination&0xFF00 | uint16(v&0xF0)
}

// WriteHDMA5 starts a GDMA or arms an HDMA transfer, or cancels an
// in-progress HDMA transfer.
func (c *Controller) WriteHDMA5(v uint8) {
	mode := v >> 7
	blocks := v & 0x7F

	if c.hdmaMode == 1 && c.hdmaRequested && !c.hdmaDone && mode == 0 {
		c.hdmaRequested = false
		c.hdmaCopying = false
		return
	}

	c.hdmaMode = mode
	c.hdmaBlocksLeft = blocks
	c.hdmaDone = false

	if mode == 0 {
		c.hdmaRequested = false
		c.hdmaCopying = true
		for c.hdmaCopying {
			c.copyByte()
		}
		c.stallCycles = 4 + 32*uint32(blocks+1)
	} else {
		c.hdmaRequested = true
	}
}

// ConsumeStall returns and clears the CPU-blocking cycle debt of the
// last GDMA transfer. The composition root charges it to every
// component in place of an executed instruction.
func (c *Controller) ConsumeStall() uint32 {
	v := c.stallCycles
	c.stallCycles = 0
	return v
}

// ReadHDMA5 reports the transfer state: 0xFF once the last transfer
// completed (or on DMG, where HDMA5 is write-only), the remaining
// block count minus one with bit 7 clear while a transfer is live, and
// with bit 7 set after a cancelled HDMA.
func (c *Controller) ReadHDMA5() uint8 {
	if !c.cgb || c.hdmaDone {
		return 0xFF
	}
	if c.hdmaRequested || c.hdmaCopying {
		return c.hdmaBlocksLeft & 0x7F
	}
	return 0x80 | c.hdmaBlocksLeft&0x7F
}
