// Package interrupts implements the Game Boy's five interrupt sources and
// the IF/IE/IME bookkeeping the CPU dispatches against.
package interrupts

import "github.com/thelolagemann/gomeboy/pkg/bits"

// Vector is the address the CPU jumps to when servicing an interrupt.
type Vector = uint16

const (
	VBlank Vector = 0x0040
	LCD    Vector = 0x0048
	Timer  Vector = 0x0050
	Serial Vector = 0x0058
	Joypad Vector = 0x0060
)

// Flag identifies one of the five interrupt sources by its bit position
// in IF/IE.
type Flag = uint8

const (
	VBlankFlag Flag = iota
	LCDFlag
	TimerFlag
	SerialFlag
	JoypadFlag
)

// vectors is indexed by Flag and gives the priority order the CPU must
// honor: the lowest flag bit wins when more than one is pending.
var vectors = [5]Vector{VBlank, LCD, Timer, Serial, Joypad}

// Service owns IF, IE and IME. Every component that can raise an
// interrupt holds a reference to the single Service the System owns.
type Service struct {
	// Flag is the Interrupt Flag register. (0xFF0F)
	Flag uint8
	// Enable is the Interrupt Enable register. (0xFFFF)
	Enable uint8
	// IME is the Interrupt Master Enable flag.
	IME bool

	// enableDelay counts down once per completed instruction; IME
	// rises when it hits zero. EI arms it at 2 so the enable lands
	// after the instruction following EI has executed, never before.
	enableDelay uint8
}

// NewService returns a Service with no interrupts pending or enabled.
func NewService() *Service {
	return &Service{}
}

// Reset restores the post-boot interrupt state: the boot sequence
// leaves a VBlank request already pending, nothing enabled and IME off.
func (s *Service) Reset() {
	s.Flag = 0x01
	s.Enable = 0
	s.IME = false
	s.enableDelay = 0
}

// Request sets the IF bit for flag.
func (s *Service) Request(flag Flag) {
	s.Flag = bits.Set(s.Flag, flag)
}

// Clear clears the IF bit for flag.
func (s *Service) Clear(flag Flag) {
	s.Flag = bits.Reset(s.Flag, flag)
}

// Pending reports whether any enabled interrupt has its IF bit set,
// irrespective of IME. HALT wakes on this condition alone.
func (s *Service) Pending() bool {
	return s.Flag&s.Enable&0x1F != 0
}

// ScheduleEnable arranges for IME to become true only after the
// instruction following EI has executed; an interrupt pending during
// EI is never serviced before that next instruction runs.
func (s *Service) ScheduleEnable() {
	s.enableDelay = 2
}

// Disable clears IME immediately (DI, or as a side effect of dispatch)
// and cancels any in-flight EI.
func (s *Service) Disable() {
	s.IME = false
	s.enableDelay = 0
}

// Tick advances a pending EI delay. The CPU calls this once per Step,
// after the step's instruction has completed: the step that executed
// EI brings the delay to 1, the step after it raises IME.
func (s *Service) Tick() {
	if s.enableDelay > 0 {
		s.enableDelay--
		if s.enableDelay == 0 {
			s.IME = true
		}
	}
}

// Dispatch returns the highest-priority pending-and-enabled interrupt's
// vector, clearing its IF bit and IME. It does not push PC or move PC;
// the CPU performs those side effects and accounts for their cycles.
// ok is false if IME is off or nothing is pending.
func (s *Service) Dispatch() (vector Vector, ok bool) {
	if !s.IME {
		return 0, false
	}
	pending := s.Flag & s.Enable & 0x1F
	if pending == 0 {
		return 0, false
	}
	for i := uint8(0); i < 5; i++ {
		if bits.Test(pending, i) {
			s.Clear(i)
			s.IME = false
			return vectors[i], true
		}
	}
	return 0, false
}

// ReadIF returns the IF register; the unused top three bits always
// read as 1.
func (s *Service) ReadIF() uint8 {
	return s.Flag&0x1F | 0xE0
}

// WriteIF writes the lower five bits of IF.
func (s *Service) WriteIF(v uint8) {
	s.Flag = v & 0x1F
}

// ReadIE returns the IE register.
func (s *Service) ReadIE() uint8 {
	return s.Enable
}

// WriteIE writes IE.
func (s *Service) WriteIE(v uint8) {
	s.Enable = v
}
