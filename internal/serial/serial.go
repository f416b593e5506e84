// Package serial emulates the Game Boy's serial port. Only the
// internal-clock (master) transfer role is modeled; the CORE never
// emulates a link-cable peer, so whatever is shifted out of SB simply
// reaches a ports.SerialSink.
package serial

import (
	"github.com/thelolagemann/gomeboy/internal/interrupts"
	"github.com/thelolagemann/gomeboy/ports"
)

const (
	normalClockCyclesPerBit = 512
	fastClockCyclesPerBit   = 16
)

// Port is the serial shifter: SB and SC.
type Port struct {
	irq  *interrupts.Service
	sink ports.SerialSink
	cgb  bool

	sb uint8
	sc uint8 // bit7: transfer in progress, bit1: fast clock (CGB), bit0: clock select

	cyclesIntoBit int
	bitsShifted   int
}

// New returns a Port with no transfer in progress.
func New(irq *interrupts.Service, sink ports.SerialSink) *Port {
	if sink == nil {
		sink = ports.NullSerialSink{}
	}
	return &Port{irq: irq, sink: sink}
}

// Reset clears any in-flight transfer.
func (p *Port) Reset(cgb bool) {
	p.cgb = cgb
	p.sb, p.sc = 0, 0
	p.cyclesIntoBit, p.bitsShifted = 0, 0
	p.sink.Reset()
}

func (p *Port) transferring() bool { return p.sc&0x80 != 0 }
func (p *Port) masterClock() bool  { return p.sc&0x01 != 0 }
func (p *Port) fastClock() bool    { return p.cgb && p.sc&0x02 != 0 }

func (p *Port) cyclesPerBit() int {
	if p.fastClock() {
		return fastClockCyclesPerBit
	}
	return normalClockCyclesPerBit
}

// Tick advances the serial clock by cycles master-clock cycles. Only
// internal-clock transfers progress; an externally-clocked transfer
// (SC bit 0 clear) sits idle forever since no peer is modeled.
func (p *Port) Tick(cycles uint8) {
	if !p.transferring() || !p.masterClock() {
		return
	}
	for i := uint8(0); i < cycles; i++ {
		p.cyclesIntoBit++
		if p.cyclesIntoBit >= p.cyclesPerBit() {
			p.cyclesIntoBit = 0
			p.shiftBit()
			if p.bitsShifted == 8 {
				p.completeTransfer()
				return
			}
		}
	}
}

func (p *Port) shiftBit() {
	p.sink.WriteBit(p.sb&0x80 != 0)
	p.sb = p.sb<<1 | 1
	p.bitsShifted++
}

func (p *Port) completeTransfer() {
	p.bitsShifted = 0
	p.sc &^= 0x80
	p.irq.Request(interrupts.SerialFlag)
	p.sink.OnByteBoundary()
}

// ReadSB returns SB.
func (p *Port) ReadSB() uint8 { return p.sb }

// WriteSB sets SB. Hardware allows this mid-transfer; so do we.
func (p *Port) WriteSB(v uint8) { p.sb = v }

// ReadSC returns SC; unused bits between the clock-select and
// transfer-enable bits read as 1.
func (p *Port) ReadSC() uint8 {
	if p.cgb {
		return p.sc | 0x7C
	}
	return p.sc | 0x7E
}

// WriteSC sets SC and, on a rising transfer-start, begins shifting.
func (p *Port) WriteSC(v uint8) {
	mask := uint8(0x81)
	if p.cgb {
		mask = 0x83
	}
	starting := v&0x80 != 0 && p.sc&0x80 == 0
	p.sc = v & mask
	if starting {
		p.cyclesIntoBit, p.bitsShifted = 0, 0
	}
}
