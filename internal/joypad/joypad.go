// Package joypad emulates the Game Boy's eight-key input latch: JOYP
// (P1) and the two-buffer commit scheme a host input thread and the
// emulation thread can safely share.
package joypad

import (
	"github.com/thelolagemann/gomeboy/internal/interrupts"
)

// Button identifies one of the eight physical keys. The low nibble
// (Right..Down) is the direction bank; the high nibble (A..Start) is
// the button bank; JOYP reports whichever bank is selected in the same
// bit position within its own nibble.
type Button = uint8

const (
	Right Button = 1 << iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// State is the Game Boy's joypad. It keeps two key-state buffers:
// `next`, mutated by SetKeyState from a UI thread, and `committed`,
// published from `next` once per frame by CommitKeyStates on the
// emulation thread. JOYP reads only ever observe `committed`.
type State struct {
	interrupts *interrupts.Service

	// selectBits mirrors JOYP bits 5-4 exactly as last written. Real
	// hardware treats 0 as "selected" (active low).
	selectBits uint8

	committed Button
	next      Button

	// AntiSOCD, when enabled, releases the opposite direction key in
	// `next` whenever one of Up/Down/Left/Right is pressed, so opposing
	// directions can never be simultaneously held.
	AntiSOCD bool
}

// New returns a joypad with no keys held and both select bits clear
// (both banks selected).
func New(irq *interrupts.Service) *State {
	return &State{interrupts: irq}
}

// Reset releases every key and clears both select bits (both banks
// selected), for a freshly loaded cartridge.
func (s *State) Reset() {
	s.selectBits = 0
	s.committed = 0
	s.next = 0
}

// SetKeyState sets or clears a key in the `next` buffer. Safe to call
// from a UI thread concurrently with CommitKeyStates.
func (s *State) SetKeyState(key Button, pressed bool) {
	if pressed {
		if s.AntiSOCD {
			s.next &^= opposite(key)
		}
		s.next |= key
	} else {
		s.next &^= key
	}
}

func opposite(key Button) Button {
	switch key {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return 0
}

// CommitKeyStates publishes `next` to `committed`, raising the joypad
// interrupt if any newly-pressed key falls within the currently
// selected bank(s). Called once per frame from the emulation thread.
func (s *State) CommitKeyStates() {
	newlyPressed := s.next &^ s.committed
	if newlyPressed == 0 {
		s.committed = s.next
		return
	}

	selected := Button(0)
	if s.selectBits&0x10 == 0 {
		selected |= Right | Left | Up | Down
	}
	if s.selectBits&0x20 == 0 {
		selected |= A | B | Select | Start
	}

	if newlyPressed&selected != 0 {
		s.interrupts.Request(interrupts.JoypadFlag)
	}
	s.committed = s.next
}

// Read returns the JOYP register. Bits 7-6 always read 1; bits 5-4
// mirror the last-written select state; bits 3-0 report the inverted
// (0=pressed) committed state of the selected bank(s), ORed together
// when both banks are selected simultaneously (neither bit 0 means
// neither nibble contributes, so the low nibble reads all 1s).
func (s *State) Read() uint8 {
	lo := uint8(0x0F)
	if s.selectBits&0x20 == 0 {
		lo &^= (s.committed >> 4) & 0x0F
	}
	if s.selectBits&0x10 == 0 {
		lo &^= s.committed & 0x0F
	}
	return 0xC0 | s.selectBits | lo
}

// Write updates the bank-select bits (JOYP bits 5-4).
func (s *State) Write(value uint8) {
	s.selectBits = value & 0x30
}
