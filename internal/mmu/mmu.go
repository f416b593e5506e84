// Package mmu implements the Game Boy's unified address space: it
// routes every CPU-visible read and write to the cartridge, PPU, APU,
// timer, serial port, joypad, DMA controller or one of the two RAM
// regions, and synthesizes the handful of addresses (echo RAM, unmapped
// I/O, HRAM) that belong to none of them.
package mmu

import (
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

// KeySwitcher is the narrow surface the MMU needs from the CPU for
// KEY1 (the CGB double-speed switch register).
type KeySwitcher interface {
	ReadKEY1() uint8
	WriteKEY1(v uint8)
}

// MMU is the CPU's Bus: a flat 16-bit address space backed by the
// cartridge, the PPU, the APU, the DMA controller, the timer, the
// serial port, the joypad, work RAM and high RAM.
type MMU struct {
	Cartridge *cartridge.Cartridge
	PPU       *ppu.PPU
	APU       *apu.APU
	DMA       *dma.Controller
	Timer     *timer.Controller
	Serial    *serial.Port
	Joypad    *joypad.State
	WRAM      *WRAM
	HRAM      [0x7F]uint8

	irq *interrupts.Service
	cpu KeySwitcher

	cgb bool
}

// New wires an MMU against the already-constructed peripherals; the
// System owns all of them and assembles this graph once at startup.
func New(cart *cartridge.Cartridge, p *ppu.PPU, a *apu.APU, d *dma.Controller, t *timer.Controller, s *serial.Port, j *joypad.State, irq *interrupts.Service, cpu KeySwitcher) *MMU {
	return &MMU{
		Cartridge: cart,
		PPU:       p,
		APU:       a,
		DMA:       d,
		Timer:     t,
		Serial:    s,
		Joypad:    j,
		WRAM:      NewWRAM(),
		irq:       irq,
		cpu:       cpu,
	}
}

// SetCartridge installs a newly loaded cartridge, replacing whatever
// was mapped at 0x0000-0x7FFF/0xA000-0xBFFF. The System is responsible
// for flushing the outgoing cartridge's battery RAM first.
func (m *MMU) SetCartridge(cart *cartridge.Cartridge) { m.Cartridge = cart }

// SetModel records whether the running session is CGB or DMG, which
// gates SVBK/VBK/KEY1 and the WRAM bank range.
func (m *MMU) SetModel(cgb bool) { m.cgb = cgb }

// Read8 reads one byte from the full 16-bit address space.
func (m *MMU) Read8(addr uint16) uint8 {
	switch {
	case addr < 0x8000:
		return m.Cartridge.ReadROM(addr)
	case addr < 0xA000:
		return m.PPU.ReadVRAM(addr)
	case addr < 0xC000:
		return m.Cartridge.ReadRAM(addr)
	case addr < 0xFE00:
		return m.WRAM.Read(addr)
	case addr < 0xFEA0:
		return m.PPU.ReadOAM(addr)
	case addr < 0xFF00:
		return 0xFF
	case addr < 0xFF80:
		return m.readIO(addr)
	case addr < 0xFFFF:
		return m.HRAM[addr-0xFF80]
	default:
		return m.irq.ReadIE()
	}
}

// Write8 writes one byte to the full 16-bit address space.
func (m *MMU) Write8(addr uint16, value uint8) {
	switch {
	case addr < 0x8000:
		m.Cartridge.WriteROM(addr, value)
	case addr < 0xA000:
		m.PPU.WriteVRAM(addr, value)
	case addr < 0xC000:
		m.Cartridge.WriteRAM(addr, value)
	case addr < 0xFE00:
		m.WRAM.Write(addr, value)
	case addr < 0xFEA0:
		m.PPU.WriteOAM(addr, value)
	case addr < 0xFF00:
		// unmapped
	case addr < 0xFF80:
		m.writeIO(addr, value)
	case addr < 0xFFFF:
		m.HRAM[addr-0xFF80] = value
	default:
		m.irq.WriteIE(value)
	}
}

func (m *MMU) readIO(addr uint16) uint8 {
	switch addr {
	case types.P1:
		return m.Joypad.Read()
	case types.SB:
		return m.Serial.ReadSB()
	case types.SC:
		return m.Serial.ReadSC()
	case types.DIV:
		return m.Timer.ReadDIV()
	case types.TIMA:
		return m.Timer.ReadTIMA()
	case types.TMA:
		return m.Timer.ReadTMA()
	case types.TAC:
		return m.Timer.ReadTAC()
	case types.IF:
		return m.irq.ReadIF()
	case types.DMA:
		return m.DMA.ReadOAMDMA()
	case types.KEY1:
		if m.cgb {
			return m.cpu.ReadKEY1()
		}
		return 0xFF
	case types.VBK, types.BCPS, types.BCPD, types.OCPS, types.OCPD:
		return m.PPU.Read(addr)
	case types.HDMA5:
		return m.DMA.ReadHDMA5()
	case types.HDMA1, types.HDMA2, types.HDMA3, types.HDMA4:
		return 0xFF
	case types.SVBK:
		if m.cgb {
			return m.WRAM.ReadSVBK()
		}
		return 0xFF
	case 0xFF4C, 0xFF4E, 0xFF56:
		return 0xFF
	}
	switch {
	case addr >= types.NR10 && addr <= types.NR52, addr >= types.WaveRAMStart && addr <= types.WaveRAMEnd:
		return m.APU.Read(addr)
	case addr >= types.LCDC && addr <= types.WX:
		return m.PPU.Read(addr)
	}
	return 0xFF
}

func (m *MMU) writeIO(addr uint16, value uint8) {
	switch addr {
	case types.P1:
		m.Joypad.Write(value)
	case types.SB:
		m.Serial.WriteSB(value)
	case types.SC:
		m.Serial.WriteSC(value)
	case types.DIV:
		m.Timer.WriteDIV(value)
	case types.TIMA:
		m.Timer.WriteTIMA(value)
	case types.TMA:
		m.Timer.WriteTMA(value)
	case types.TAC:
		m.Timer.WriteTAC(value)
	case types.IF:
		m.irq.WriteIF(value)
	case types.DMA:
		m.DMA.WriteOAMDMA(value)
	case types.KEY1:
		if m.cgb {
			m.cpu.WriteKEY1(value)
		}
	case types.VBK:
		m.PPU.Write(addr, value)
	case types.HDMA1:
		if m.cgb {
			m.DMA.WriteHDMA1(value)
		}
	case types.HDMA2:
		if m.cgb {
			m.DMA.WriteHDMA2(value)
		}
	case types.HDMA3:
		if m.cgb {
			m.DMA.WriteHDMA3(value)
		}
	case types.HDMA4:
		if m.cgb {
			m.DMA.WriteHDMA4(value)
		}
	case types.HDMA5:
		if m.cgb {
			m.DMA.WriteHDMA5(value)
		}
	case types.BCPS, types.BCPD, types.OCPS, types.OCPD:
		m.PPU.Write(addr, value)
	case types.SVBK:
		if m.cgb {
			m.WRAM.WriteSVBK(value)
		}
	default:
		switch {
		case addr >= types.NR10 && addr <= types.NR52, addr >= types.WaveRAMStart && addr <= types.WaveRAMEnd:
			m.APU.Write(addr, value)
		case addr >= types.LCDC && addr <= types.WX:
			m.PPU.Write(addr, value)
		}
	}
}
