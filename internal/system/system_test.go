package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/gomeboy/internal/joypad"
	"github.com/thelolagemann/gomeboy/internal/types"
)

// testROM builds a 32KiB ROM-only image whose code region is a NOP
// sled, so the CPU can run frames without ever leaving bank 0.
func testROM(cgb bool) []byte {
	rom := make([]byte, 2*0x4000)
	if cgb {
		rom[0x143] = 0x80
	}
	rom[0x147] = 0x00 // ROM only
	rom[0x148] = 0x00 // 2 banks
	rom[0x149] = 0x00
	return rom
}

// recordingPixelSink counts pixels and asserts every coordinate stays
// on the 160x144 screen.
type recordingPixelSink struct {
	t         *testing.T
	pixels    int
	refreshes int
}

func (r *recordingPixelSink) PutPixel(x, y uint8, _, _, _ uint8) {
	if x >= 160 || y >= 144 {
		r.t.Fatalf("PutPixel(%d, %d) out of bounds", x, y)
	}
	r.pixels++
}
func (r *recordingPixelSink) RefreshFrame() { r.refreshes++ }
func (r *recordingPixelSink) Power(bool)    {}

type mapStore struct {
	snapshots map[uint64][]byte
}

func (m *mapStore) Save(id uint64, data []byte) bool {
	if m.snapshots == nil {
		m.snapshots = map[uint64][]byte{}
	}
	m.snapshots[id] = append([]byte(nil), data...)
	return true
}

func (m *mapStore) Load(id uint64) ([]byte, bool) {
	data, ok := m.snapshots[id]
	return data, ok
}

func TestLoadROM_CGBResetState(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadROM(testROM(true)))

	regs := s.Registers()
	assert.Equal(t, uint16(0x0100), regs.PC)
	assert.Equal(t, uint16(0xFFFE), regs.SP)
	assert.Equal(t, uint16(0x1180), uint16(regs.A)<<8|uint16(regs.F))
	assert.Equal(t, uint16(0x0000), uint16(regs.B)<<8|uint16(regs.C))
	assert.Equal(t, uint16(0x0008), uint16(regs.D)<<8|uint16(regs.E))
	assert.Equal(t, uint16(0x007C), uint16(regs.H)<<8|uint16(regs.L))

	assert.Equal(t, uint8(0xE1), s.MMU.Read8(types.IF))
	assert.Equal(t, uint8(0x00), s.MMU.Read8(types.IE))
	assert.Equal(t, types.ModelCGB, s.Model())
}

func TestLoadROM_RejectedLoadKeepsPreviousCartridge(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadROM(testROM(false)))
	before := s.CartridgeMeta()

	bad := testROM(false)
	err := s.LoadROM(bad[:len(bad)-1])
	require.Error(t, err)
	assert.Equal(t, before, s.CartridgeMeta())
}

func TestStep_CyclesArePositiveMultiplesOf4(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadROM(testROM(true)))
	for i := 0; i < 64; i++ {
		cycles := s.Step()
		require.NotZero(t, cycles)
		require.Zero(t, cycles%4)
	}
}

func TestFrame_AccountsExactly70224Cycles(t *testing.T) {
	sink := &recordingPixelSink{t: t}
	s := New(WithPixelSink(sink))
	require.NoError(t, s.LoadROM(testROM(false)))
	sink.pixels, sink.refreshes = 0, 0

	// The PPU starts a fresh frame at LoadROM, so two Frame calls must
	// contain at least one full 154-line pass.
	s.Frame()
	s.Frame()
	require.NotZero(t, sink.refreshes)
	assert.Zero(t, sink.pixels%(160*144))
}

func TestTimerOverflowScenario(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadROM(testROM(false)))

	s.MMU.Write8(types.TMA, 0x23)
	s.MMU.Write8(types.TAC, 0x05) // enabled, 262144 Hz (16-cycle period)
	s.MMU.Write8(types.TIMA, 0xFF)
	for i := 0; i < 5; i++ { // 5 NOPs = 20 cycles
		s.Step()
	}

	assert.Equal(t, uint8(0x23), s.MMU.Read8(types.TIMA))
	assert.NotZero(t, s.MMU.Read8(types.IF)&0x04)
}

func TestMBC1BankZeroRedirectsToOne(t *testing.T) {
	rom := make([]byte, 4*0x4000) // ROM size byte 0x01
	rom[0x147] = 0x01             // MBC1, no RAM
	rom[0x148] = 0x01
	for b := 0; b < 4; b++ {
		rom[b*0x4000+0x100] = uint8(b + 0x40)
	}

	s := New()
	require.NoError(t, s.LoadROM(rom))

	s.MMU.Write8(0x2000, 0x00)
	assert.Equal(t, rom[0x4000], s.MMU.Read8(0x4000))
	assert.Equal(t, uint8(0x41), s.MMU.Read8(0x4100))
}

func TestWRAMAndHRAMRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadROM(testROM(false)))

	for _, addr := range []uint16{0xC000, 0xCFFF, 0xD000, 0xDFFF, 0xFF80, 0xFFFE} {
		s.MMU.Write8(addr, 0x5A)
		assert.Equalf(t, uint8(0x5A), s.MMU.Read8(addr), "addr %04X", addr)
	}
}

func TestEchoRAMMirrorsWRAM(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadROM(testROM(false)))

	s.MMU.Write8(0xC123, 0xAB)
	assert.Equal(t, uint8(0xAB), s.MMU.Read8(0xE123))
	s.MMU.Write8(0xF000, 0xCD)
	assert.Equal(t, uint8(0xCD), s.MMU.Read8(0xD000))
}

func TestAntiSOCDCommitScenario(t *testing.T) {
	s := New(WithAntiSOCD())
	require.NoError(t, s.LoadROM(testROM(false)))

	s.MMU.Write8(types.P1, 0xEF) // select directions
	s.SetKeyState(joypad.Down, true)
	s.Joypad.CommitKeyStates()

	s.SetKeyState(joypad.Up, true)
	s.Joypad.CommitKeyStates()

	joyp := s.MMU.Read8(types.P1)
	assert.Zero(t, joyp&joypad.Up, "Up should read pressed (0)")
	assert.NotZero(t, joyp&joypad.Down, "Down should read released (1)")
	assert.NotZero(t, s.MMU.Read8(types.IF)&0x10)
}

func TestBatteryRoundTripAcrossLoads(t *testing.T) {
	rom := make([]byte, 2*0x4000)
	rom[0x147] = 0x03 // MBC1+RAM+BATTERY
	rom[0x148] = 0x00
	rom[0x149] = 0x02 // one 2KiB bank... header table maps 2 -> 1 bank

	store := &mapStore{}
	s := New(WithBatteryStore(store))
	require.NoError(t, s.LoadROM(rom))

	s.MMU.Write8(0x0000, 0x0A) // enable RAM
	s.MMU.Write8(0xA000, 0x77)

	// Swapping cartridges flushes the outgoing battery.
	require.NoError(t, s.LoadROM(testROM(false)))
	require.Len(t, store.snapshots, 1)

	// Reloading the battery-backed cartridge restores its RAM.
	require.NoError(t, s.LoadROM(rom))
	s.MMU.Write8(0x0000, 0x0A)
	assert.Equal(t, uint8(0x77), s.MMU.Read8(0xA000))
}

func TestHungCPUStopsProgress(t *testing.T) {
	rom := testROM(false)
	rom[0x100] = 0xD3 // undefined opcode
	s := New()
	require.NoError(t, s.LoadROM(rom))

	require.NotZero(t, s.Step())
	assert.Zero(t, s.Step())
	assert.Equal(t, "Hung", s.Status().String())
}
