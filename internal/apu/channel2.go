package apu

import "github.com/thelolagemann/gomeboy/internal/types"

// channel2 is the second square-wave channel; identical to channel1
// minus the frequency sweep.
type channel2 struct {
	*volumeChannel

	waveDutyPosition uint8

	duty       uint8
	lengthLoad uint8

	frequency uint16

	apu *APU
}

func newChannel2(a *APU) *channel2 {
	c := &channel2{apu: a}
	c.volumeChannel = newVolumeChannel(newChannel())
	return c
}

func (c *channel2) reloadFrequencyTimer() {
	c.frequencyTimer = uint32(2048-c.frequency) * 4
}

func (c *channel2) step() {
	c.frequencyTimer--
	if c.frequencyTimer == 0 {
		c.reloadFrequencyTimer()
		c.waveDutyPosition = (c.waveDutyPosition + 1) & 0x7
	}
}

func (c *channel2) getAmplitude() float32 {
	if !c.isEnabled() {
		return 0
	}
	dacInput := squareDuty[c.duty][c.waveDutyPosition] * c.currentVolume
	return (float32(dacInput) / 7.5) - 1
}

func (c *channel2) WriteNR21(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.duty = (v & 0xC0) >> 6
	c.lengthLoad = v & 0x3F
	c.lengthCounter = 0x40 - uint(c.lengthLoad)
}

func (c *channel2) ReadNR21() uint8 { return c.duty<<6 | 0x3F }

func (c *channel2) WriteNR22(v uint8) {
	if c.apu.enabled {
		c.setNRx2(v)
	}
}

func (c *channel2) ReadNR22() uint8 { return c.getNRx2() }

func (c *channel2) WriteNR23(v uint8) {
	if c.apu.enabled {
		c.frequency = (c.frequency & 0x700) | uint16(v)
	}
}

func (c *channel2) WriteNR24(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.frequency = (c.frequency & 0x00FF) | (uint16(v&0x7) << 8)
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
	}
}

func (c *channel2) ReadNR24() uint8 {
	b := uint8(0)
	if c.lengthCounterEnabled {
		b |= types.Bit6
	}
	return b | 0xBF
}
