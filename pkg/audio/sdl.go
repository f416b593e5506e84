// Package audio hosts the emulator's sound on an SDL2 queueing audio
// device. It implements ports.SampleSink without ever blocking the
// emulation thread: samples accumulate in a small batch and are handed
// to SDL's queue in one call; if the host falls behind and the queue
// has grown past a high-water mark, the new batch is discarded instead
// of queued, and audio already in the queue is never dropped.
package audio

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	// SampleRate matches the rate the APU mixes at.
	SampleRate = 44100

	// batchSamples is how many stereo pairs accumulate before a queue
	// hand-off; small enough to keep latency under 25ms.
	batchSamples = 1024

	// maxQueuedBytes caps SDL's queue at a quarter second of stereo
	// pairs (4 bytes each); beyond it we drop rather than let latency
	// grow unbounded.
	maxQueuedBytes = (SampleRate / 4) * 4
)

// Queue is a ports.SampleSink backed by an SDL2 queueing audio device.
type Queue struct {
	device sdl.AudioDeviceID
	batch  []byte
	muted  atomic.Bool
}

// OpenQueue opens the default audio device in 16-bit stereo queueing
// mode and starts playback.
func OpenQueue() (*Queue, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("sdl audio init: %w", err)
	}

	spec := &sdl.AudioSpec{
		Freq:     SampleRate,
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  batchSamples,
	}
	device, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("sdl audio device: %w", err)
	}
	sdl.PauseAudioDevice(device, false)

	return &Queue{
		device: device,
		batch:  make([]byte, 0, batchSamples*4),
	}, nil
}

// BufferSamples receives one stereo pair from the APU. Called from the
// emulation thread at exactly the output rate.
func (q *Queue) BufferSamples(left, right int16) {
	q.batch = binary.LittleEndian.AppendUint16(q.batch, uint16(left))
	q.batch = binary.LittleEndian.AppendUint16(q.batch, uint16(right))
	if len(q.batch) < batchSamples*4 {
		return
	}

	if sdl.GetQueuedAudioSize(q.device) < maxQueuedBytes {
		_ = sdl.QueueAudio(q.device, q.batch)
	}
	q.batch = q.batch[:0]
}

// IsMuted reports whether the host has muted audio; the APU skips
// mixing entirely while true.
func (q *Queue) IsMuted() bool { return q.muted.Load() }

// SetMuted toggles the mute flag. Safe to call from the UI thread.
func (q *Queue) SetMuted(m bool) {
	q.muted.Store(m)
	if m {
		sdl.ClearQueuedAudio(q.device)
	}
}

// Close stops playback and releases the device.
func (q *Queue) Close() {
	sdl.CloseAudioDevice(q.device)
}
