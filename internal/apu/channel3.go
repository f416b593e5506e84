package apu

import "github.com/thelolagemann/gomeboy/internal/types"

// channel3 plays an arbitrary 32-sample 4-bit waveform out of wave RAM
// (0xFF30-0xFF3F). Reads/writes to wave RAM while the channel is
// running are only honored within a couple of cycles of the channel's
// own access, matching the real hardware's read-while-on quirk.
type channel3 struct {
	*channel

	waveRAM             [16]uint8
	waveRAMPosition     uint8
	waveRAMSampleBuffer uint8

	lengthLoad uint8

	volumeCode      uint8
	volumeCodeShift uint8

	frequency uint16

	ticksSinceRead uint8

	apu *APU
}

func newChannel3(a *APU) *channel3 {
	return &channel3{channel: newChannel(), apu: a}
}

func (c *channel3) reloadFrequencyTimer() {
	c.frequencyTimer = uint32(2048-c.frequency) * 2
}

func (c *channel3) step() {
	c.ticksSinceRead++
	c.frequencyTimer--
	if c.frequencyTimer == 0 {
		c.reloadFrequencyTimer()
		c.ticksSinceRead = 0
		c.waveRAMPosition = (c.waveRAMPosition + 1) % 32
		c.waveRAMSampleBuffer = c.waveRAM[c.waveRAMPosition/2]
	}
}

func (c *channel3) getAmplitude() float32 {
	if !c.isEnabled() || c.volumeCodeShift == 4 {
		return 0
	}
	sample := c.waveRAMSampleBuffer
	if c.waveRAMPosition%2 == 0 {
		sample >>= 4
	} else {
		sample &= 0x0F
	}
	sample >>= c.volumeCodeShift
	return (float32(sample) / 7.5) - 1
}

func (c *channel3) WriteNR30(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.dacEnabled = v&types.Bit7 != 0
	c.enabled = c.dacEnabled
}

func (c *channel3) ReadNR30() uint8 {
	b := uint8(0)
	if c.dacEnabled {
		b |= types.Bit7
	}
	return b | 0x7F
}

func (c *channel3) WriteNR31(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.lengthLoad = v
	c.lengthCounter = 0x100 - uint(c.lengthLoad)
}

func (c *channel3) WriteNR32(v uint8) {
	if !c.apu.enabled {
		return
	}
	c.volumeCode = (v & 0x60) >> 5
	switch c.volumeCode {
	case 0b00:
		c.volumeCodeShift = 4
	case 0b01:
		c.volumeCodeShift = 0
	case 0b10:
		c.volumeCodeShift = 1
	case 0b11:
		c.volumeCodeShift = 2
	}
}

func (c *channel3) ReadNR32() uint8 { return c.volumeCode<<5 | 0x9F }

func (c *channel3) WriteNR33(v uint8) {
	if c.apu.enabled {
		c.frequency = (c.frequency & 0x700) | uint16(v)
	}
}

func (c *channel3) WriteNR34(v uint8) {
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
			c.lengthCounter = 0x100
			if c.lengthCounterEnabled && c.apu.firstHalfOfLengthPeriod {
				c.lengthCounter--
			}
		}
		c.waveRAMPosition = 0
		c.frequencyTimer = uint32(2048-c.frequency)*2 + 6
	}
}

func (c *channel3) ReadNR34() uint8 {
	b := uint8(0)
	if c.lengthCounterEnabled {
		b |= types.Bit6
	}
	return b | 0xBF
}

func (c *channel3) readWaveRAM(address uint16) uint8 {
	if c.isEnabled() {
		if c.ticksSinceRead < 2 {
			return c.waveRAM[c.waveRAMPosition/2]
		}
		return 0xFF
	}
	return c.waveRAM[address-types.WaveRAMStart]
}

func (c *channel3) writeWaveRAM(address uint16, value uint8) {
	if c.isEnabled() {
		if c.ticksSinceRead < 2 {
			c.waveRAM[c.waveRAMPosition/2] = value
		}
		return
	}
	c.waveRAM[address-types.WaveRAMStart] = value
}
