package apu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	samples [][2]int16
	muted   bool
}

func (r *recordingSink) BufferSamples(left, right int16) {
	r.samples = append(r.samples, [2]int16{left, right})
}
func (r *recordingSink) IsMuted() bool { return r.muted }

func TestNR52_PowerOnOffResetsChannels(t *testing.T) {
	sink := &recordingSink{}
	a := NewAPU(sink)

	a.Write(0xFF26, 0x80) // NR52 power on
	require.True(t, a.enabled)

	a.Write(0xFF12, 0xF0) // NR12: max volume, no envelope
	a.Write(0xFF14, 0x80) // NR14: trigger
	assert.True(t, a.chan1.enabled)

	a.Write(0xFF26, 0x00) // power off
	assert.False(t, a.enabled)
	assert.False(t, a.chan1.enabled)

	// writes to channel registers are ignored while powered off
	a.Write(0xFF12, 0xF0)
	assert.Equal(t, uint8(0), a.chan1.startingVolume)
}

func TestNR51_PanningReadback(t *testing.T) {
	a := NewAPU(nil)
	a.Write(0xFF26, 0x80)
	a.Write(0xFF25, 0x11) // channel 1 on both left and right
	got := a.Read(0xFF25)
	assert.Equal(t, uint8(0x11), got)
	assert.True(t, a.leftEnable[0])
	assert.True(t, a.rightEnable[0])
}

func TestChannel1_SweepOverflowDisablesChannel(t *testing.T) {
	a := NewAPU(nil)
	a.Write(0xFF26, 0x80)
	a.Write(0xFF12, 0xF0) // volume envelope non-zero so dac enabled
	a.Write(0xFF10, 0x71) // sweep period 7, shift 1 (increase)
	a.Write(0xFF13, 0xFF) // frequency low byte
	a.Write(0xFF14, 0x87) // trigger, frequency high bits -> 0x7FF

	// with shift>0 the initial frequencyCalculation runs on trigger and
	// can already disable the channel on overflow.
	assert.False(t, a.chan1.enabled)
}

func TestNR52_PowerOffReadsBack0x70(t *testing.T) {
	a := NewAPU(nil)
	a.Write(0xFF26, 0x80)
	a.Write(0xFF26, 0x00)
	assert.Equal(t, uint8(0x70), a.Read(0xFF26))

	// All channel registers read as just their always-set bits.
	assert.Equal(t, uint8(0x80), a.Read(0xFF10)) // NR10
	assert.Equal(t, uint8(0x3F), a.Read(0xFF11)) // NR11
	assert.Equal(t, uint8(0x00), a.Read(0xFF12)) // NR12
	assert.Equal(t, uint8(0xBF), a.Read(0xFF14)) // NR14
	assert.Equal(t, uint8(0x7F), a.Read(0xFF1A)) // NR30
	assert.Equal(t, uint8(0x00), a.Read(0xFF24)) // NR50
	assert.Equal(t, uint8(0x00), a.Read(0xFF25)) // NR51
}

func TestChannel4_LFSRFirstStep(t *testing.T) {
	a := NewAPU(nil)
	a.Write(0xFF26, 0x80)
	a.Write(0xFF21, 0xF0) // NR42: DAC on
	a.Write(0xFF22, 0x00) // NR43: divisor code 0, shift 0, 15-bit mode
	a.Write(0xFF23, 0x80) // NR44: trigger

	require.Equal(t, uint16(0x7FFF), a.chan4.lfsr)

	// Drain one full timer period so the LFSR clocks exactly once.
	period := a.chan4.frequencyTimer
	for i := uint32(0); i < period; i++ {
		a.chan4.step()
	}
	assert.Equal(t, uint16(0x3FFF), a.chan4.lfsr)
	assert.Equal(t, uint16(1), a.chan4.lfsr&1)
}

func TestAPU_EmitsOnePairPerSamplePeriod(t *testing.T) {
	sink := &recordingSink{}
	a := NewAPU(sink)
	a.Write(0xFF26, 0x80)

	for i := 0; i < 10; i++ {
		a.Tick(uint8(samplePeriod))
	}
	assert.Len(t, sink.samples, 10)
}

func TestWaveRAM_ReadBackWhileMuted(t *testing.T) {
	a := NewAPU(nil)
	a.Write(0xFF26, 0x80)
	for off := uint16(0); off < 16; off++ {
		a.Write(0xFF30+off, uint8(off)|0xA0)
		require.Equal(t, uint8(off)|0xA0, a.Read(0xFF30+off))
	}
}

func TestAPU_TickProducesSamples(t *testing.T) {
	sink := &recordingSink{}
	a := NewAPU(sink)
	a.Write(0xFF26, 0x80)
	a.Write(0xFF25, 0xFF) // all channels to both speakers
	a.Write(0xFF24, 0x77) // max master volume

	a.Tick(255)
	a.Tick(255)
	assert.NotEmpty(t, sink.samples)
}
