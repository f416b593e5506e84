package apu

import "github.com/thelolagemann/gomeboy/internal/types"

// channel is the state shared by all four sound channels: a length
// counter that silences the channel when it runs out, and the DAC gate
// that silences it regardless of length.
type channel struct {
	enabled    bool
	dacEnabled bool

	lengthCounter        uint
	lengthCounterEnabled bool

	// frequencyTimer is wide enough for the noise channel's worst case
	// (divisor 112 shifted by 15), which overflows 16 bits.
	frequencyTimer uint32
}

func newChannel() *channel { return &channel{} }

func (c *channel) isEnabled() bool { return c.enabled && c.dacEnabled }

// lengthStep is clocked at 256 Hz by the frame sequencer.
func (c *channel) lengthStep() {
	if c.lengthCounterEnabled && c.lengthCounter > 0 {
		c.lengthCounter--
		c.enabled = c.lengthCounter > 0
	}
}

// volumeChannel adds a volume envelope (NRx2) on top of a channel.
// Channels 1, 2 and 4 embed it; channel 3 has a fixed volume shift
// instead and does not.
type volumeChannel struct {
	*channel

	startingVolume  uint8
	envelopeAddMode bool
	period          uint8

	volumeEnvelopeTimer      uint8
	currentVolume            uint8
	volumeEnvelopeIsUpdating bool
}

func newVolumeChannel(c *channel) *volumeChannel {
	return &volumeChannel{channel: c}
}

// volumeStep is clocked at 64 Hz by the frame sequencer.
func (v *volumeChannel) volumeStep() {
	if v.period == 0 {
		return
	}
	if v.volumeEnvelopeTimer > 0 {
		v.volumeEnvelopeTimer--
		if v.volumeEnvelopeTimer == 0 {
			v.volumeEnvelopeTimer = v.period
			if v.currentVolume < 0xF && v.envelopeAddMode || v.currentVolume > 0 && !v.envelopeAddMode {
				if v.envelopeAddMode {
					v.currentVolume++
				} else {
					v.currentVolume--
				}
			} else {
				v.volumeEnvelopeIsUpdating = false
			}
		}
	}
}

// setNRx2 applies a write to NR12/NR22/NR42, including the documented
// zombie-mode glitch when the envelope is rewritten while the channel
// is already running.
func (v *volumeChannel) setNRx2(val uint8) {
	envelopeAddMode := val&types.Bit3 != 0

	if v.enabled {
		if v.period == 0 && v.volumeEnvelopeIsUpdating || !v.envelopeAddMode {
			v.currentVolume++
		}
		if envelopeAddMode != v.envelopeAddMode {
			v.currentVolume = 0x10 - v.currentVolume
		}
		v.currentVolume &= 0x0F
	}

	v.startingVolume = val >> 4
	v.envelopeAddMode = envelopeAddMode
	v.period = val & 0x7
	v.dacEnabled = val&0xF8 > 0
	if !v.dacEnabled {
		v.enabled = false
	}
}

func (v *volumeChannel) getNRx2() uint8 {
	b := (v.startingVolume << 4) | v.period
	if v.envelopeAddMode {
		b |= types.Bit3
	}
	return b
}

func (v *volumeChannel) initVolumeEnvelope() {
	v.volumeEnvelopeTimer = v.period
	v.currentVolume = v.startingVolume
	v.volumeEnvelopeIsUpdating = true
}
