package system

import (
	"github.com/thelolagemann/gomeboy/internal/types"
	"github.com/thelolagemann/gomeboy/pkg/log"
	"github.com/thelolagemann/gomeboy/ports"
)

// modelPreference is the operator's say over the hardware personality:
// by default the cartridge header decides.
type modelPreference uint8

const (
	modelAuto modelPreference = iota
	modelForceDMG
	modelForceCGB
)

// Option configures a System at construction time.
type Option func(*System)

// WithLogger routes the System's diagnostics to l instead of the
// default no-op logger.
func WithLogger(l log.Logger) Option {
	return func(s *System) { s.Logger = l }
}

// WithModel forces the hardware personality instead of following the
// cartridge header.
func WithModel(m types.Model) Option {
	return func(s *System) {
		if m == types.ModelCGB {
			s.modelPref = modelForceCGB
		} else {
			s.modelPref = modelForceDMG
		}
	}
}

// AsDMG forces the monochrome personality even for CGB-capable
// cartridges.
func AsDMG() Option { return WithModel(types.ModelDMG) }

// WithPixelSink delivers finished pixels to sink instead of discarding
// them.
func WithPixelSink(sink ports.PixelSink) Option {
	return func(s *System) { s.pixelSink = sink }
}

// WithSampleSink delivers mixed stereo samples to sink instead of
// discarding them.
func WithSampleSink(sink ports.SampleSink) Option {
	return func(s *System) { s.sampleSink = sink }
}

// WithSerialSink reports bits shifted out of the serial port to sink.
func WithSerialSink(sink ports.SerialSink) Option {
	return func(s *System) { s.serialSink = sink }
}

// WithBatteryStore persists battery-backed cartridge RAM to store on
// cartridge swap and FlushBattery, and restores it on LoadROM.
func WithBatteryStore(store BatteryStore) Option {
	return func(s *System) { s.battery = store }
}

// WithSaveEvery flushes battery RAM to the store every n frames, from
// the emulation thread, so a crash loses at most n frames of progress.
func WithSaveEvery(n int) Option {
	return func(s *System) { s.saveEvery = n }
}

// WithAntiSOCD releases the opposite direction key whenever one of
// Up/Down/Left/Right is pressed, so opposing directions are never held
// together.
func WithAntiSOCD() Option {
	return func(s *System) { s.antiSOCD = true }
}
