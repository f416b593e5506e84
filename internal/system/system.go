// Package system is the composition root: it owns one of every
// hardware component, wires the call graph between them, and drives
// the whole machine from the cycle counts the CPU returns. Hosts talk
// to the System; components never reach outside it except through the
// sink interfaces in ports.
package system

import (
	"github.com/thelolagemann/gomeboy/internal/apu"
	"github.com/thelolagemann/gomeboy/internal/cartridge"
	"github.com/thelolagemann/gomeboy/internal/cpu"
	"github.com/thelolagemann/gomeboy/internal/dma"
	"github.com/thelolagemann/gomeboy/internal/interrupts"
	"github.com/thelolagemann/gomeboy/internal/joypad"
	"github.com/thelolagemann/gomeboy/internal/mmu"
	"github.com/thelolagemann/gomeboy/internal/ppu"
	"github.com/thelolagemann/gomeboy/internal/serial"
	"github.com/thelolagemann/gomeboy/internal/timer"
	"github.com/thelolagemann/gomeboy/internal/types"
	"github.com/thelolagemann/gomeboy/pkg/log"
	"github.com/thelolagemann/gomeboy/ports"
)

const (
	// ClockSpeed is the master clock rate in Hz.
	ClockSpeed = 4194304
	// CyclesPerFrame is one full PPU frame: 154 scanlines of 456
	// cycles, at the normal-speed clock.
	CyclesPerFrame = 70224
)

// BatteryStore persists battery-backed cartridge RAM between runs,
// keyed by the cartridge's identity hash. The CORE only ever hands it
// raw bytes; file formats, paths and compression are the store's
// business.
type BatteryStore interface {
	Save(id uint64, data []byte) bool
	Load(id uint64) ([]byte, bool)
}

// startupRegisters reproduces the I/O state the boot ROM leaves
// behind, written through the MMU so every register-side effect fires
// exactly as a real write would. NR52 must come first: while the APU
// is powered off it ignores every other register write.
var startupRegisters = []struct {
	addr  types.HardwareAddress
	value uint8
}{
	{types.NR52, 0xF1},
	{types.NR10, 0x80},
	{types.NR11, 0xBF},
	{types.NR12, 0xF3},
	{types.NR14, 0xBF},
	{types.NR21, 0x3F},
	{types.NR22, 0x00},
	{types.NR24, 0xBF},
	{types.NR30, 0x7F},
	{types.NR31, 0xFF},
	{types.NR32, 0x9F},
	{types.NR33, 0xBF},
	{types.NR41, 0xFF},
	{types.NR42, 0x00},
	{types.NR43, 0x00},
	{types.NR50, 0x77},
	{types.NR51, 0xF3},
	{types.LCDC, 0x91},
	{types.STAT, 0x80},
	{types.BGP, 0xFC},
}

// System is a complete Game Boy. It is single-threaded: exactly one
// goroutine calls Step/Frame; the only concurrent entry point is
// SetKeyState, which touches nothing but the joypad's input buffer.
type System struct {
	CPU        *cpu.CPU
	MMU        *mmu.MMU
	PPU        *ppu.PPU
	APU        *apu.APU
	DMA        *dma.Controller
	Timer      *timer.Controller
	Serial     *serial.Port
	Joypad     *joypad.State
	Interrupts *interrupts.Service

	log.Logger

	cart  *cartridge.Cartridge
	model types.Model

	modelPref modelPreference
	antiSOCD  bool

	pixelSink  ports.PixelSink
	sampleSink ports.SampleSink
	serialSink ports.SerialSink
	battery    BatteryStore

	saveEvery       int
	framesSinceSave int

	// frameCycles accumulates PPU-clock cycles toward the next frame
	// boundary.
	frameCycles uint32
}

// New assembles a System with no cartridge loaded. Call LoadROM before
// the first Step.
func New(opts ...Option) *System {
	s := &System{Logger: log.NewNullLogger()}
	for _, opt := range opts {
		opt(s)
	}

	irq := interrupts.NewService()
	s.Interrupts = irq
	s.Joypad = joypad.New(irq)
	s.Joypad.AntiSOCD = s.antiSOCD
	s.Serial = serial.New(irq, s.serialSink)
	s.Timer = timer.NewController(irq)
	s.APU = apu.NewAPU(s.sampleSink)
	s.PPU = ppu.New(irq, s.pixelSink)
	s.CPU = cpu.New(s, irq)

	// The System stands in as the DMA engines' bus handle so they can
	// be built before the MMU that ultimately serves their reads.
	s.DMA = dma.New(s, s.PPU, s.PPU, false)
	s.PPU.SetOAMDMAActive(s.DMA.IsOAMTransferring)

	s.MMU = mmu.New(nil, s.PPU, s.APU, s.DMA, s.Timer, s.Serial, s.Joypad, irq, s.CPU)
	return s
}

// Read8 and Write8 make the System the CPU's and DMA's bus handle,
// delegating straight to the MMU. This breaks the construction cycle
// between the CPU (which needs a bus) and the MMU (which needs the
// CPU for KEY1).
func (s *System) Read8(addr uint16) uint8 { return s.MMU.Read8(addr) }

// Write8 routes a bus write through the MMU.
func (s *System) Write8(addr uint16, value uint8) { s.MMU.Write8(addr, value) }

// LoadROM parses and installs a new cartridge, flushing the outgoing
// cartridge's battery RAM first and restoring the new one's snapshot
// if the store has one. A failed load leaves the previous cartridge
// and all component state untouched.
func (s *System) LoadROM(rom []byte) error {
	cart, err := cartridge.NewCartridge(rom)
	if err != nil {
		s.Errorf("rom rejected: %v", err)
		return err
	}

	s.FlushBattery()
	s.cart = cart
	s.MMU.SetCartridge(cart)

	meta := cart.Meta()
	cgbModel := meta.CGB
	switch s.modelPref {
	case modelForceDMG:
		cgbModel = false
	case modelForceCGB:
		cgbModel = true
	}
	// A DMG-only cartridge on CGB hardware runs the DMG render path
	// with a built-in colorization palette, not true CGB mode.
	hardwareCGB := cgbModel && meta.CGB
	if cgbModel {
		s.model = types.ModelCGB
	} else {
		s.model = types.ModelDMG
	}

	s.reset(cgbModel, hardwareCGB)
	s.PPU.SetCompatibilityPalette(cgbModel && !meta.CGB)

	if s.battery != nil {
		if data, ok := s.battery.Load(meta.Identity); ok {
			if cart.LoadBattery(data) {
				s.Debugf("battery snapshot restored for %q", meta.Title)
			}
		}
	}

	s.Infof("loaded %q (%s, %d ROM banks, %d RAM banks)", meta.Title, s.model, meta.ROMBanks, meta.RAMBanks)
	return nil
}

func (s *System) reset(cpuCGB, hardwareCGB bool) {
	s.Interrupts.Reset()
	s.CPU.Reset(cpuCGB)
	s.MMU.SetModel(hardwareCGB)
	s.MMU.WRAM.Reset()
	s.PPU.Reset(hardwareCGB)
	s.APU.Reset(hardwareCGB)
	s.APU.SetModel(s.model)
	s.DMA.Reset(hardwareCGB)
	s.Timer.Reset(hardwareCGB)
	s.Serial.Reset(hardwareCGB)
	s.Joypad.Reset()
	s.frameCycles = 0

	for _, r := range startupRegisters {
		s.MMU.Write8(r.addr, r.value)
	}
}

// Step executes one CPU instruction (or one stalled-bus unit while an
// HDMA block owns the bus) and feeds the consumed cycles to DMA, APU,
// PPU, Timer and Serial, in that order. The return value is the
// CPU-clock cycle count; zero means the CPU is Hung or no cartridge is
// loaded, and no component advanced.
func (s *System) Step() uint32 {
	if s.cart == nil {
		return 0
	}

	var cycles uint32
	if s.DMA.HDMABlocked() && s.CPU.GetStatus() == cpu.Running {
		cycles = 4
	} else {
		cycles = s.CPU.Step()
		// A GDMA kicked off by this instruction's HDMA5 write freezes
		// the CPU for its whole duration; charge it now.
		cycles += s.DMA.ConsumeStall()
	}
	if cycles == 0 {
		return 0
	}

	// Components that do not scale with the CGB double-speed mode see
	// half the CPU's cycle count while it is active.
	machine := cycles
	if s.CPU.DoubleSpeed() {
		machine /= 2
	}

	if s.CPU.GetStatus() == cpu.Running {
		tick(s.DMA.Tick, cycles)
		tick(s.DMA.HDMATick, machine)
	}
	tick(s.APU.Tick, machine)
	tick(s.PPU.Tick, machine)
	if s.PPU.EnteredHBlank() {
		s.DMA.OnHBlank()
	}
	tick(s.Timer.Tick, cycles)
	tick(s.Serial.Tick, cycles)

	s.frameCycles += machine
	return cycles
}

// tick feeds a cycle count to a component whose Tick takes one byte at
// a time; instruction steps fit in a byte, the 130992-cycle speed
// switch does not.
func tick(f func(uint8), n uint32) {
	for n >= 255 {
		f(255)
		n -= 255
	}
	if n > 0 {
		f(uint8(n))
	}
}

// Frame publishes pending joypad input and runs the emulation for one
// frame's worth of cycles (70224 at the PPU clock). It returns early
// if the CPU hangs.
func (s *System) Frame() {
	s.Joypad.CommitKeyStates()
	for s.frameCycles < CyclesPerFrame {
		if s.Step() == 0 {
			return
		}
	}
	s.frameCycles -= CyclesPerFrame

	if s.saveEvery > 0 {
		s.framesSinceSave++
		if s.framesSinceSave >= s.saveEvery {
			s.framesSinceSave = 0
			s.FlushBattery()
		}
	}
}

// FlushBattery dumps the current cartridge's battery-backed RAM to the
// configured store. It reports whether a snapshot was written; a false
// return (no battery, no store, or a store failure) never disturbs the
// emulation.
func (s *System) FlushBattery() bool {
	if s.battery == nil || s.cart == nil {
		return false
	}
	data, ok := s.cart.SaveBattery()
	if !ok {
		return false
	}
	if !s.battery.Save(s.cart.Meta().Identity, data) {
		s.Errorf("battery save failed for %q", s.cart.Meta().Title)
		return false
	}
	return true
}

// Status reports the CPU's run state so a host or debugger can notice
// a Hung core without reaching into the CPU.
func (s *System) Status() cpu.Status { return s.CPU.GetStatus() }

// Registers returns a snapshot of the CPU register file.
func (s *System) Registers() cpu.Registers { return s.CPU.GetRegisters() }

// Resume forces a Halted, Stopped or Hung CPU back to Running; a
// debugger collaborator uses it to step past a bad opcode.
func (s *System) Resume() { s.CPU.Resume() }

// Model reports the hardware personality the loaded cartridge resolved
// to, after any operator override.
func (s *System) Model() types.Model { return s.model }

// CartridgeMeta returns the loaded cartridge's header metadata, or the
// zero Meta when nothing is loaded. A rejected LoadROM leaves the
// previous cartridge's metadata in place.
func (s *System) CartridgeMeta() cartridge.Meta { return s.cart.Meta() }

// SetKeyState records a key press or release. Safe to call from a UI
// thread; the new state is observed by the emulation at the next
// Frame boundary.
func (s *System) SetKeyState(key joypad.Button, pressed bool) {
	s.Joypad.SetKeyState(key, pressed)
}
