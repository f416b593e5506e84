package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thelolagemann/gomeboy/internal/interrupts"
)

// TAC=0x05 selects the 262144 Hz mode (period 16 cycles) with the
// enable bit set, the value that overflows a TIMA primed to 0xFF after
// exactly 16 cycles. The TMA reload and interrupt land one cycle after
// the overflow itself.
func TestController_TIMAOverflow(t *testing.T) {
	irq := interrupts.NewService()
	c := NewController(irq)

	c.WriteTAC(0x05)
	c.WriteTMA(0x23)
	c.WriteTIMA(0xFF)

	c.Tick(16)
	assert.Equal(t, uint8(0x00), c.ReadTIMA())
	assert.Zero(t, irq.Flag&(1<<interrupts.TimerFlag))

	c.Tick(1)
	assert.Equal(t, uint8(0x23), c.ReadTIMA())
	assert.NotZero(t, irq.Flag&(1<<interrupts.TimerFlag))
}

// tickN feeds n cycles to c.Tick in chunks, since Tick takes a uint8.
func tickN(c *Controller, n int) {
	for n >= 255 {
		c.Tick(255)
		n -= 255
	}
	if n > 0 {
		c.Tick(uint8(n))
	}
}

func TestController_DIVWraps(t *testing.T) {
	c := NewController(interrupts.NewService())
	tickN(c, 65535)
	assert.Equal(t, uint8(0xFF), c.ReadDIV())
	c.Tick(1)
	assert.Equal(t, uint8(0x00), c.ReadDIV())
}

func TestController_WriteDIVResets(t *testing.T) {
	c := NewController(interrupts.NewService())
	tickN(c, 300)
	assert.NotZero(t, c.ReadDIV())
	c.WriteDIV(0)
	assert.Zero(t, c.ReadDIV())
}

func TestController_TACUpperBitsAlwaysSet(t *testing.T) {
	c := NewController(interrupts.NewService())
	c.WriteTAC(0x00)
	assert.Equal(t, uint8(0xF8), c.ReadTAC())
}
