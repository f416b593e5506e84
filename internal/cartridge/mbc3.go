package cartridge

// mbc3 supports up to 128 ROM banks, 16 RAM banks and an optional RTC.
// The RTC is register-faithful but never advances wall-clock time:
// reads return whatever was last latched or written, and a 0->1 write
// edge on the latch register re-copies the live registers into the
// latched snapshot.
type mbc3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    uint8
	ramBank    uint8 // 0-3 selects RAM, 0x8-0xC selects an RTC register

	romBanks uint
	ramBanks uint

	hasRTC         bool
	rtc            [5]uint8 // seconds, minutes, hours, day-low, day-high/flags
	latch          [5]uint8
	lastLatchWrite uint8
}

func newMBC3(rom []byte, h *Header) *mbc3 {
	return &mbc3{
		rom:      rom,
		ram:      make([]byte, h.RAMSize()),
		romBank:  1,
		romBanks: h.ROMBanks,
		ramBanks: h.RAMBanks,
		hasRTC:   h.info.rtc,
	}
}

func (m *mbc3) ReadROMBank0(addr uint16) uint8 { return m.rom[addr] }

func (m *mbc3) ReadROMBankX(addr uint16) uint8 {
	bank := uint(m.romBank)
	if m.romBanks > 0 {
		bank %= m.romBanks
	}
	idx := bank*0x4000 + uint(addr-0x4000)
	if int(idx) < len(m.rom) {
		return m.rom[idx]
	}
	return 0xFF
}

func (m *mbc3) WriteROM(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		value &= 0x7F
		if value == 0 {
			value = 1
		}
		m.romBank = value
	case addr < 0x6000:
		m.ramBank = value
	default:
		if m.lastLatchWrite == 0 && value == 1 {
			m.latch = m.rtc
		}
		m.lastLatchWrite = value
	}
}

func (m *mbc3) selectingRTC() bool {
	return m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C
}

func (m *mbc3) ReadRAM(addr uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.selectingRTC() {
		return m.latch[m.ramBank-0x08]
	}
	if len(m.ram) == 0 {
		return 0xFF
	}
	bank := uint(m.ramBank)
	if m.ramBanks > 0 {
		bank %= m.ramBanks
	}
	idx := bank*ramBankSize + uint(addr-0xA000)
	if int(idx) < len(m.ram) {
		return m.ram[idx]
	}
	return 0xFF
}

func (m *mbc3) WriteRAM(addr uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if m.selectingRTC() {
		m.rtc[m.ramBank-0x08] = value
		return
	}
	if len(m.ram) == 0 {
		return
	}
	bank := uint(m.ramBank)
	if m.ramBanks > 0 {
		bank %= m.ramBanks
	}
	idx := bank*ramBankSize + uint(addr-0xA000)
	if int(idx) < len(m.ram) {
		m.ram[idx] = value
	}
}

func (m *mbc3) SaveRAM() []byte     { return m.ram }
func (m *mbc3) LoadRAM(data []byte) { copy(m.ram, data) }
