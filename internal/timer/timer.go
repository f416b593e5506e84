// Package timer implements the Game Boy's DIV/TIMA/TMA/TAC timer block.
package timer

import (
	"github.com/thelolagemann/gomeboy/internal/interrupts"
)

// tacBit maps TAC bits 0-1 to the divider bit (within the 16-bit
// internal counter) whose falling edge clocks TIMA:
//
//	00 -> 4096 Hz (bit 9), 01 -> 262144 Hz (bit 3),
//	10 -> 65536 Hz (bit 5), 11 -> 16384 Hz (bit 7)
var tacBit = [4]uint8{9, 3, 5, 7}

// Controller is the timer block. DIV is the top 8 bits of a free-
// running 16-bit counter; TIMA advances on the falling edge of one bit
// of that counter, selected by TAC.
type Controller struct {
	irq *interrupts.Service

	counter uint16 // internal 16-bit divider; DIV = counter >> 8
	tima    uint8
	tma     uint8
	tac     uint8 // bits 0-1 select frequency, bit 2 enables TIMA

	// overflowed delays the TMA reload/interrupt by one cycle's worth
	// of Tick, matching real TIMA overflow timing.
	overflowed bool
}

// NewController returns a Controller with DIV running from zero.
func NewController(irq *interrupts.Service) *Controller {
	return &Controller{irq: irq}
}

// Reset reinitializes the timer. cgb has no bearing on timer behavior
// but is accepted for symmetry with the other components' Reset.
func (c *Controller) Reset(cgb bool) {
	*c = Controller{irq: c.irq}
}

func (c *Controller) enabled() bool { return c.tac&0x04 != 0 }

func (c *Controller) selectedBit() bool {
	return c.counter&(1<<tacBit[c.tac&0x03]) != 0
}

// Tick advances the timer by cycles CPU-clock cycles. The composition
// root passes the CPU's count unhalved, so in CGB double-speed mode the
// timer runs at twice the normal rate.
func (c *Controller) Tick(cycles uint8) {
	for i := uint8(0); i < cycles; i++ {
		c.tickOne()
	}
}

func (c *Controller) tickOne() {
	if c.overflowed {
		c.overflowed = false
		c.tima = c.tma
		c.irq.Request(interrupts.TimerFlag)
	}

	before := c.enabled() && c.selectedBit()
	c.counter++
	after := c.enabled() && c.selectedBit()

	if before && !after {
		c.incrementTIMA()
	}
}

func (c *Controller) incrementTIMA() {
	c.tima++
	if c.tima == 0 {
		c.overflowed = true
	}
}

// ReadDIV returns the upper 8 bits of the internal counter.
func (c *Controller) ReadDIV() uint8 { return uint8(c.counter >> 8) }

// WriteDIV resets the internal counter to zero. If the bit TAC is
// currently watching was set, this looks like a falling edge to TIMA
// and clocks it once, matching real hardware's DIV-write glitch.
func (c *Controller) WriteDIV(uint8) {
	before := c.enabled() && c.selectedBit()
	c.counter = 0
	if before {
		c.incrementTIMA()
	}
}

// ReadTIMA returns TIMA.
func (c *Controller) ReadTIMA() uint8 { return c.tima }

// WriteTIMA sets TIMA, canceling any reload this same tick would have
// performed.
func (c *Controller) WriteTIMA(v uint8) {
	c.tima = v
	c.overflowed = false
}

// ReadTMA returns TMA.
func (c *Controller) ReadTMA() uint8 { return c.tma }

// WriteTMA sets TMA.
func (c *Controller) WriteTMA(v uint8) { c.tma = v }

// ReadTAC returns TAC; bits 3-7 always read as 1.
func (c *Controller) ReadTAC() uint8 { return c.tac&0x07 | 0xF8 }

// WriteTAC sets TAC's low three bits.
func (c *Controller) WriteTAC(v uint8) { c.tac = v & 0x07 }
