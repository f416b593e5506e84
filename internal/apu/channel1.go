package apu

import "github.com/thelolagemann/gomeboy/internal/types"

// channel1 is the square-wave channel with a frequency sweep (NR10-14).
type channel1 struct {
	*volumeChannel

	sweepPeriod       uint8
	negate            bool
	shift             uint8
	sweepTimer        uint8
	frequencyShadow   uint16
	sweepEnabled      bool
	negateHasHappened bool

	duty       uint8
	lengthLoad uint8

	frequency uint16

	waveDutyPosition uint8

	apu *APU
}

var squareDuty = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

func newChannel1(a *APU) *channel1 {
	c := &channel1{apu: a}
	c.volumeChannel = newVolumeChannel(newChannel())
	return c
}

func (c *channel1) reloadFrequencyTimer() {
	c.frequencyTimer = uint32(2048-c.frequency) * 4
}

func (c *channel1) step() {
	c.frequencyTimer--
	if c.frequencyTimer == 0 {
		c.reloadFrequencyTimer()
		c.waveDutyPosition = (c.waveDutyPosition + 1) & 0x7
	}
}

func (c *channel1) frequencyCalculation() uint16 {
	calculated := c.frequencyShadow >> c.shift
	if c.negate {
		calculated = c.frequencyShadow - calculated
	}
	calculated += c.frequencyShadow
	if calculated > 0x07FF {
		c.enabled = false
	}
	c.negateHasHappened = c.negate
	return calculated
}

func (c *channel1) sweepClock() {
	if c.sweepTimer > 0 {
		c.sweepTimer--
	}
	if c.sweepTimer == 0 {
		if c.sweepPeriod > 0 {
			c.sweepTimer = c.sweepPeriod
		} else {
			c.sweepTimer = 8
		}
		if c.sweepEnabled && c.sweepPeriod > 0 {
			calculated := c.frequencyCalculation()
			if calculated <= 0x07FF && c.shift > 0 {
				c.frequencyShadow = calculated
				c.frequency = calculated
				c.frequencyCalculation()
			}
		}
	}
}

func (c *channel1) getAmplitude() float32 {
	if !c.isEnabled() {
		return 0
	}
	dacInput := squareDuty[c.duty][c.waveDutyPosition] * c.currentVolume
	return (float32(dacInput) / 7.5) - 1
}

func (c *channel1) WriteNR10(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.sweepPeriod = (v & 0x70) >> 4
	c.negate = v&types.Bit3 != 0
	c.shift = v & 0x7
	if !c.negate && c.negateHasHappened {
		c.enabled = false
	}
}

func (c *channel1) ReadNR10() uint8 {
	b := (c.sweepPeriod << 4) | c.shift
	if c.negate {
		b |= types.Bit3
	}
	return b | 0x80
}

func (c *channel1) WriteNR11(v uint8) {
	if c.apu.enabled {
		c.duty = (v & 0xC0) >> 6
	}
	c.lengthLoad = v & 0x3F
	c.lengthCounter = 0x40 - uint(c.lengthLoad)
}

func (c *channel1) ReadNR11() uint8 {
	if c.apu.enabled {
		return (c.duty << 6) | 0x3F
	}
	return 0x3F
}

func (c *channel1) WriteNR12(v uint8) {
	if c.apu.enabled {
		c.setNRx2(v)
	}
}

func (c *channel1) ReadNR12() uint8 { return c.getNRx2() }

func (c *channel1) WriteNR13(v uint8) {
	if c.apu.enabled {
		c.frequency = (c.frequency & 0x700) | uint16(v)
	}
}

func (c *channel1) WriteNR14(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.frequency = (c.frequency & 0x00FF) | ((uint16(v) & 0x07) << 8)
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
		c.frequencyShadow = c.frequency
		if c.sweepPeriod > 0 {
			c.sweepTimer = c.sweepPeriod
		} else {
			c.sweepTimer = 8
		}
		c.sweepEnabled = c.sweepPeriod > 0 || c.shift > 0
		c.negateHasHappened = false
		if c.shift > 0 {
			c.frequencyCalculation()
		}
	}
}

func (c *channel1) ReadNR14() uint8 {
	b := uint8(0)
	if c.lengthCounterEnabled {
		b |= types.Bit6
	}
	return b | 0xBF
}
