package apu

import "github.com/thelolagemann/gomeboy/internal/types"

// channel4 is the noise channel: a 15-bit (or, in narrow mode, 7-bit)
// linear feedback shift register clocked by a divisor/shift pair
// instead of a 11-bit frequency.
type channel4 struct {
	*volumeChannel

	lfsr uint16

	lengthLoad uint8

	clockShift  uint8
	widthMode   uint8
	divisorCode uint8

	apu *APU
}

func newChannel4(a *APU) *channel4 {
	c := &channel4{lfsr: 0x7FFF, apu: a}
	c.volumeChannel = newVolumeChannel(newChannel())
	return c
}

func (c *channel4) reloadFrequencyTimer() {
	if c.divisorCode == 0 {
		c.frequencyTimer = 8 << c.clockShift
	} else {
		c.frequencyTimer = uint32(c.divisorCode) << 4 << c.clockShift
	}
}

func (c *channel4) step() {
	c.frequencyTimer--
	if c.frequencyTimer == 0 {
		c.reloadFrequencyTimer()
		newBit := (c.lfsr & 0b01) ^ ((c.lfsr & 0b10) >> 1)
		c.lfsr >>= 1
		c.lfsr |= newBit << 14
		if c.widthMode != 0 {
			c.lfsr &^= 1 << 6
			c.lfsr |= newBit << 6
		}
	}
}

func (c *channel4) getAmplitude() float32 {
	if !c.isEnabled() {
		return 0
	}
	dacInput := uint8(c.lfsr&1^1) * c.currentVolume
	return (float32(dacInput) / 7.5) - 1
}

func (c *channel4) WriteNR41(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.lengthLoad = v & 0x3F
	c.lengthCounter = 0x40 - uint(c.lengthLoad)
}

func (c *channel4) WriteNR42(v uint8) {
	if c.apu.enabled {
		c.setNRx2(v)
	}
}

func (c *channel4) ReadNR42() uint8 { return c.getNRx2() }

func (c *channel4) WriteNR43(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.clockShift = v >> 4
	c.widthMode = (v & types.Bit3) >> 3
	c.divisorCode = v & 0x7
}

func (c *channel4) ReadNR43() uint8 {
	return c.clockShift<<4 | c.widthMode<<3 | c.divisorCode
}

func (c *channel4) WriteNR44(v uint8) {
	if !c.apu.enabled {
		return
	}
	lengthCounterEnabled := v&types.Bit6 != 0
	if c.apu.firstHalfOfLengthPeriod && !c.lengthCounterEnabled && lengthCounterEnabled && c.lengthCounter > 0 {
		c.lengthCounter--
		c.enabled = c.lengthCounter > 0
	}
	c.lengthCounterEnabled = lengthCounterEnabled

	if v&types.Bit7 != 0 {
		c.enabled = c.dacEnabled
		if c.lengthCounter == 0 {
			c.lengthCounter = 0x40
			if c.lengthCounterEnabled && c.apu.firstHalfOfLengthPeriod {
				c.lengthCounter--
			}
		}
		c.reloadFrequencyTimer()
		c.initVolumeEnvelope()
		c.lfsr = 0x7FFF
	}
}

func (c *channel4) ReadNR44() uint8 {
	b := uint8(0)
	if c.lengthCounterEnabled {
		b |= types.Bit6
	}
	return b | 0xBF
}
