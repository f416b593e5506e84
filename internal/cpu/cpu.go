// Package cpu implements the LR35902 instruction decoder/executor: the
// standard 8-bit register ISA plus its 0xCB-prefixed extended set, the
// five-source interrupt dispatcher, and the HALT/STOP/speed-switch
// status machine. The CPU touches memory only through the narrow Bus
// interface it is constructed with; it has no idea the MMU, cartridge
// or peripherals exist. Every Step spends whole multiples of 4 master-
// clock cycles and returns the total so the composition root can feed
// the same count to DMA, APU, PPU, Timer and Serial.
package cpu

import (
	"github.com/thelolagemann/gomeboy/internal/interrupts"
)

// Bus is the memory-access surface the CPU needs: a flat 16-bit address
// space with no notion of cycles (the CPU itself accounts for timing).
type Bus interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, value uint8)
}

// Status is the CPU's run state.
type Status uint8

const (
	// Running executes one instruction (or services an interrupt) per Step.
	Running Status = iota
	// Halted spins, waking as soon as any enabled interrupt is pending.
	Halted
	// Stopped spins until the joypad interrupt flag is raised. An armed
	// CGB speed switch completes inside STOP and never enters this state.
	Stopped
	// Hung followed an undefined opcode; Step becomes a permanent no-op.
	Hung
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Halted:
		return "Halted"
	case Stopped:
		return "Stopped"
	case Hung:
		return "Hung"
	}
	return "Unknown"
}

// speedSwitchCycles is the fixed duration a CGB speed switch consumes
// once armed and triggered by STOP.
const speedSwitchCycles = 130992

// CPU is the LR35902 core. It owns only its own register file and run
// state; every side effect on the rest of the machine happens through
// Bus (memory) or irq (interrupt requests/dispatch).
type CPU struct {
	A, F Register
	B, C Register
	D, E Register
	H, L Register

	BC, DE, HL, AF RegisterPair

	// hlMem backs registerPointers[6], the "(HL)" pseudo-register slot
	// the flat 8-register decode tables index into.
	hlMem Register

	registerPointers [8]*Register

	SP, PC uint16

	bus Bus
	irq *interrupts.Service

	cgb         bool
	doubleSpeed bool
	key1        uint8 // bit 0: armed, bit 7: current speed (read-only mirror)

	status Status

	// cycles accumulates the T-states this Step has spent so far. Wide
	// enough for the 130992-cycle speed switch, the longest single Step.
	cycles uint32
}

// New returns a CPU wired to bus for memory access and irq for
// interrupt bookkeeping. Call Reset before the first Step.
func New(bus Bus, irq *interrupts.Service) *CPU {
	c := &CPU{bus: bus, irq: irq}
	c.wireRegisterPairs()
	return c
}

func (c *CPU) wireRegisterPairs() {
	c.BC = RegisterPair{&c.B, &c.C}
	c.DE = RegisterPair{&c.D, &c.E}
	c.HL = RegisterPair{&c.H, &c.L}
	c.AF = RegisterPair{&c.A, &c.F}
	c.registerPointers = [8]*Register{&c.B, &c.C, &c.D, &c.E, &c.H, &c.L, &c.hlMem, &c.A}
}

// Reset synthesizes the register state a boot ROM would leave behind;
// no boot ROM is ever executed. cgb selects which of the two
// documented reset vectors applies.
func (c *CPU) Reset(cgb bool) {
	c.A, c.B, c.C, c.D, c.E, c.H, c.L, c.F = 0, 0, 0, 0, 0, 0, 0, 0
	c.wireRegisterPairs()
	c.cgb = cgb
	c.doubleSpeed = false
	c.key1 = 0
	c.status = Running
	c.cycles = 0

	c.SP = 0xFFFE
	c.PC = 0x0100
	if cgb {
		c.AF.SetUint16(0x1180)
		c.BC.SetUint16(0x0000)
		c.DE.SetUint16(0x0008)
		c.HL.SetUint16(0x007C)
	} else {
		c.AF.SetUint16(0x01B0)
		c.BC.SetUint16(0x0013)
		c.DE.SetUint16(0x00D8)
		c.HL.SetUint16(0x014D)
	}
}

// GetStatus reports the CPU's current run state.
func (c *CPU) GetStatus() Status { return c.status }

// Resume forces the CPU back to Running. A host debugger uses this to
// step past a Hung state or to force-wake a Halted/Stopped core.
func (c *CPU) Resume() { c.status = Running }

// GetRegisters returns a snapshot of the register file and run flags.
func (c *CPU) GetRegisters() Registers {
	return Registers{
		A: c.A, F: c.F,
		B: c.B, C: c.C,
		D: c.D, E: c.E,
		H: c.H, L: c.L,
		SP: c.SP, PC: c.PC,
		IME:         c.irq.IME,
		DoubleSpeed: c.doubleSpeed,
	}
}

// RaiseInterrupt requests interrupt source flag, same as any other
// component calling into the shared interrupts.Service directly. It
// exists on CPU so a host can route synthetic interrupts (e.g. from a
// debugger) through one exported surface.
func (c *CPU) RaiseInterrupt(flag interrupts.Flag) { c.irq.Request(flag) }

// ReadIF returns the interrupt flag register.
func (c *CPU) ReadIF() uint8 { return c.irq.ReadIF() }

// WriteIF writes the interrupt flag register.
func (c *CPU) WriteIF(v uint8) { c.irq.WriteIF(v) }

// ReadIE returns the interrupt enable register.
func (c *CPU) ReadIE() uint8 { return c.irq.ReadIE() }

// WriteIE writes the interrupt enable register.
func (c *CPU) WriteIE(v uint8) { c.irq.WriteIE(v) }

// ReadKEY1 returns KEY1: bit 7 mirrors the active speed, bit 0 mirrors
// whether a speed switch is armed; the middle bits always read 1.
func (c *CPU) ReadKEY1() uint8 {
	var v uint8
	if c.doubleSpeed {
		v |= 0x80
	}
	v |= c.key1 & 0x01
	return v | 0x7E
}

// WriteKEY1 arms (or disarms) a pending speed switch via bit 0; bit 7
// is read-only.
func (c *CPU) WriteKEY1(v uint8) {
	if v&0x01 != 0 {
		c.key1 |= 0x01
	} else {
		c.key1 &^= 0x01
	}
}

// DoubleSpeed reports whether the CPU is currently running at double
// speed; components that stay on the machine clock (PPU, APU, HDMA)
// receive half the cycle counts Step returns while this is true.
func (c *CPU) DoubleSpeed() bool { return c.doubleSpeed }

func (c *CPU) tick(cycles uint32) { c.cycles += cycles }

// readByte performs a ticked memory read: one 4-cycle bus access.
func (c *CPU) readByte(addr uint16) uint8 {
	c.tick(4)
	return c.bus.Read8(addr)
}

// writeByte performs a ticked memory write: one 4-cycle bus access.
func (c *CPU) writeByte(addr uint16, value uint8) {
	c.tick(4)
	c.bus.Write8(addr, value)
}

// readOperand reads the byte at PC and advances it; used for opcode
// fetch and for immediate operands.
func (c *CPU) readOperand() uint8 {
	v := c.readByte(c.PC)
	c.PC++
	return v
}

// skipOperand spends the same 4 cycles as readOperand without needing
// the fetched value, for the not-taken side of conditional branches.
func (c *CPU) skipOperand() {
	c.tick(4)
	c.PC++
}

// keySelected reports whether any currently-selected joypad key reads
// as pressed, per JOYP's low nibble (active-low). STOP uses it to decide
// whether an armed speed switch hangs the CPU; it is a peek, not an
// instruction memory access, so it isn't cycle-accounted.
func (c *CPU) keySelected() bool {
	return c.bus.Read8(0xFF00)&0x0F != 0x0F
}

// Step executes one instruction, or services an interrupt, or spends a
// single poll tick of a Halted/Stopped CPU, and returns the number of
// T-states consumed. The result is always a positive multiple of 4,
// except when the CPU is Hung, which returns 0 forever.
func (c *CPU) Step() uint32 {
	c.cycles = 0

	switch c.status {
	case Hung:
		return 0

	case Halted:
		c.tick(4)
		if c.irq.Pending() {
			c.status = Running
		}
		return c.cycles

	case Stopped:
		c.tick(4)
		if c.irq.Flag&(1<<interrupts.JoypadFlag) != 0 {
			c.status = Running
		}
		return c.cycles
	}

	if vector, ok := c.irq.Dispatch(); ok {
		c.dispatchInterrupt(vector)
	} else {
		opcode := c.readOperand()
		c.decode(opcode)
	}
	c.irq.Tick()

	return c.cycles
}

// dispatchInterrupt pushes PC and jumps to vector; IF/IME bookkeeping
// was already performed by irq.Dispatch.
func (c *CPU) dispatchInterrupt(vector uint16) {
	c.tick(4)
	c.tick(4)
	c.push(uint8(c.PC>>8), uint8(c.PC&0xFF))
	c.PC = vector
}
