// Package apu implements the Game Boy's audio processing unit: two
// square channels, a wave channel and a noise channel, mixed down to
// stereo 16-bit samples at a fixed output rate.
package apu

import (
	"github.com/thelolagemann/gomeboy/internal/types"
	"github.com/thelolagemann/gomeboy/ports"
)

const (
	// sampleRate is the rate pairs reach the sample sink, matching the
	// 44.1kHz a host audio device expects.
	sampleRate   = 44100
	samplePeriod = 4194304 / sampleRate

	frameSequencerRate   = 512
	frameSequencerPeriod = 4194304 / frameSequencerRate
)

// APU mixes four channels down to a ports.SampleSink. It has no
// knowledge of SDL or any other concrete audio device; Tick is driven
// directly by the owning system with the cycle count the CPU just
// executed.
type APU struct {
	enabled bool

	chan1 *channel1
	chan2 *channel2
	chan3 *channel3
	chan4 *channel4

	frameSequencerCounter   uint32
	frameSequencerStep      uint8
	frequencyCounter        uint32
	firstHalfOfLengthPeriod bool

	vinLeft, vinRight       bool
	volumeLeft, volumeRight uint8
	leftEnable, rightEnable [4]bool

	model types.Model
	sink  ports.SampleSink
}

// NewAPU returns an APU that delivers mixed samples to sink.
func NewAPU(sink ports.SampleSink) *APU {
	if sink == nil {
		sink = ports.NullSampleSink{}
	}
	a := &APU{
		frequencyCounter:      samplePeriod,
		frameSequencerCounter: frameSequencerPeriod,
		sink:                  sink,
	}
	a.chan1 = newChannel1(a)
	a.chan2 = newChannel2(a)
	a.chan3 = newChannel3(a)
	a.chan4 = newChannel4(a)
	return a
}

// SetModel records which hardware personality is running; the APU
// itself behaves identically on DMG and CGB, but channels consult it
// for the rare register quirks that differ.
func (a *APU) SetModel(model types.Model) { a.model = model }

// Reset returns the APU to its power-on state: all channels silent,
// wave RAM cleared, frame sequencer at step zero, master enable off.
// cgb is accepted for symmetry with the other components' Reset.
func (a *APU) Reset(cgb bool) {
	a.powerOff()
	a.chan3.waveRAM = [16]uint8{}
	a.chan4.lfsr = 0x7FFF
	a.frameSequencerCounter = frameSequencerPeriod
	a.frameSequencerStep = 0
	a.frequencyCounter = samplePeriod
	a.firstHalfOfLengthPeriod = false
	a.enabled = false
}

// Tick advances the APU by the given number of T-cycles, the same unit
// cpu.CPU.Step returns.
func (a *APU) Tick(cycles uint8) {
	for i := uint8(0); i < cycles; i++ {
		if !a.enabled {
			continue
		}

		a.frameSequencerCounter--
		if a.frameSequencerCounter == 0 {
			a.frameSequencerCounter = frameSequencerPeriod
			a.firstHalfOfLengthPeriod = a.frameSequencerStep&types.Bit0 == 0

			switch a.frameSequencerStep {
			case 0, 4:
				a.lengthStep()
			case 2, 6:
				a.lengthStep()
				a.chan1.sweepClock()
			case 7:
				a.chan1.volumeStep()
				a.chan2.volumeStep()
				a.chan4.volumeStep()
			}
			a.frameSequencerStep = (a.frameSequencerStep + 1) & 7
		}

		a.chan1.step()
		a.chan2.step()
		a.chan3.step()
		a.chan4.step()

		a.frequencyCounter--
		if a.frequencyCounter == 0 {
			a.frequencyCounter = samplePeriod
			a.mixAndPush()
		}
	}
}

func (a *APU) lengthStep() {
	a.chan1.lengthStep()
	a.chan2.lengthStep()
	a.chan3.lengthStep()
	a.chan4.lengthStep()
}

func (a *APU) mixAndPush() {
	if a.sink.IsMuted() {
		return
	}

	amplitudes := [4]float32{
		a.chan1.getAmplitude(),
		a.chan2.getAmplitude(),
		a.chan3.getAmplitude(),
		a.chan4.getAmplitude(),
	}

	var left, right float32
	for i, amp := range amplitudes {
		if a.leftEnable[i] {
			left += amp
		}
		if a.rightEnable[i] {
			right += amp
		}
	}

	left = ((float32(a.volumeLeft) / 7) * left) / 4
	right = ((float32(a.volumeRight) / 7) * right) / 4

	a.sink.BufferSamples(toPCM16(left), toPCM16(right))
}

func toPCM16(f float32) int16 {
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int16(f * 32767)
}

// Read services an NRxx or wave-RAM read.
func (a *APU) Read(address uint16) uint8 {
	switch address {
	case types.NR10:
		return a.chan1.ReadNR10()
	case types.NR11:
		return a.chan1.ReadNR11()
	case types.NR12:
		return a.chan1.ReadNR12()
	case types.NR13:
		return 0xFF
	case types.NR14:
		return a.chan1.ReadNR14()
	case types.NR21:
		return a.chan2.ReadNR21()
	case types.NR22:
		return a.chan2.ReadNR22()
	case types.NR23:
		return 0xFF
	case types.NR24:
		return a.chan2.ReadNR24()
	case types.NR30:
		return a.chan3.ReadNR30()
	case types.NR31:
		return 0xFF
	case types.NR32:
		return a.chan3.ReadNR32()
	case types.NR33:
		return 0xFF
	case types.NR34:
		return a.chan3.ReadNR34()
	case types.NR41:
		return 0xFF
	case types.NR42:
		return a.chan4.ReadNR42()
	case types.NR43:
		return a.chan4.ReadNR43()
	case types.NR44:
		return a.chan4.ReadNR44()
	case types.NR50:
		return a.readNR50()
	case types.NR51:
		return a.readNR51()
	case types.NR52:
		return a.readNR52()
	}
	if address >= types.WaveRAMStart && address <= types.WaveRAMEnd {
		return a.chan3.readWaveRAM(address)
	}
	return 0xFF
}

// Write services an NRxx or wave-RAM write.
func (a *APU) Write(address uint16, value uint8) {
	switch address {
	case types.NR10:
		a.chan1.WriteNR10(value)
	case types.NR11:
		a.chan1.WriteNR11(value)
	case types.NR12:
		a.chan1.WriteNR12(value)
	case types.NR13:
		a.chan1.WriteNR13(value)
	case types.NR14:
		a.chan1.WriteNR14(value)
	case types.NR21:
		a.chan2.WriteNR21(value)
	case types.NR22:
		a.chan2.WriteNR22(value)
	case types.NR23:
		a.chan2.WriteNR23(value)
	case types.NR24:
		a.chan2.WriteNR24(value)
	case types.NR30:
		a.chan3.WriteNR30(value)
	case types.NR31:
		a.chan3.WriteNR31(value)
	case types.NR32:
		a.chan3.WriteNR32(value)
	case types.NR33:
		a.chan3.WriteNR33(value)
	case types.NR34:
		a.chan3.WriteNR34(value)
	case types.NR41:
		a.chan4.WriteNR41(value)
	case types.NR42:
		a.chan4.WriteNR42(value)
	case types.NR43:
		a.chan4.WriteNR43(value)
	case types.NR44:
		a.chan4.WriteNR44(value)
	case types.NR50:
		a.writeNR50(value)
	case types.NR51:
		a.writeNR51(value)
	case types.NR52:
		a.writeNR52(value)
	default:
		if address >= types.WaveRAMStart && address <= types.WaveRAMEnd {
			a.chan3.writeWaveRAM(address, value)
		}
	}
}

func (a *APU) writeNR50(v uint8) {
	if !a.enabled {
		return
	}
	a.volumeRight = v & 0x7
	a.volumeLeft = (v >> 4) & 0x7
	a.vinRight = v&types.Bit3 != 0
	a.vinLeft = v&types.Bit7 != 0
}

func (a *APU) readNR50() uint8 {
	b := a.volumeRight | a.volumeLeft<<4
	if a.vinRight {
		b |= types.Bit3
	}
	if a.vinLeft {
		b |= types.Bit7
	}
	return b
}

func (a *APU) writeNR51(v uint8) {
	if !a.enabled {
		return
	}
	for i := 0; i < 4; i++ {
		a.rightEnable[i] = v&(1<<i) != 0
		a.leftEnable[i] = v&(1<<(i+4)) != 0
	}
}

func (a *APU) readNR51() uint8 {
	b := uint8(0)
	for i := 0; i < 4; i++ {
		if a.rightEnable[i] {
			b |= 1 << i
		}
		if a.leftEnable[i] {
			b |= 1 << (i + 4)
		}
	}
	return b
}

func (a *APU) writeNR52(v uint8) {
	wasEnabled := a.enabled
	if v&types.Bit7 == 0 && wasEnabled {
		a.powerOff()
	} else if v&types.Bit7 != 0 && !wasEnabled {
		a.enabled = true
		a.frameSequencerStep = 0
		a.chan3.waveRAM = [16]uint8{}
	}
}

func (a *APU) powerOff() {
	a.enabled = false
	*a.chan1 = channel1{apu: a}
	a.chan1.volumeChannel = newVolumeChannel(newChannel())
	*a.chan2 = channel2{apu: a}
	a.chan2.volumeChannel = newVolumeChannel(newChannel())
	waveRAM := a.chan3.waveRAM
	*a.chan3 = channel3{channel: newChannel(), apu: a}
	a.chan3.waveRAM = waveRAM
	lfsr := a.chan4.lfsr
	*a.chan4 = channel4{apu: a, lfsr: lfsr}
	a.chan4.volumeChannel = newVolumeChannel(newChannel())
	a.volumeLeft, a.volumeRight = 0, 0
	a.vinLeft, a.vinRight = false, false
	a.leftEnable, a.rightEnable = [4]bool{}, [4]bool{}
}

func (a *APU) readNR52() uint8 {
	b := uint8(0)
	if a.enabled {
		b |= types.Bit7
	}
	if a.chan1.enabled {
		b |= types.Bit0
	}
	if a.chan2.enabled {
		b |= types.Bit1
	}
	if a.chan3.enabled {
		b |= types.Bit2
	}
	if a.chan4.enabled {
		b |= types.Bit3
	}
	return b | 0x70
}
