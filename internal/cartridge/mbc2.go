package cartridge

// mbc2 has a fixed 512x4-bit on-chip RAM (stored here as 512 bytes,
// high nibble ignored on write and forced to 0xF on read) and no
// separate RAM-size header field to honor.
type mbc2 struct {
	rom []byte
	ram [512]byte

	ramEnabled bool
	romBank    uint8

	romBanks uint
}

func newMBC2(rom []byte, h *Header) *mbc2 {
	return &mbc2{rom: rom, romBank: 1, romBanks: h.ROMBanks}
}

func (m *mbc2) ReadROMBank0(addr uint16) uint8 { return m.rom[addr] }

func (m *mbc2) ReadROMBankX(addr uint16) uint8 {
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

func (m *mbc2) WriteROM(addr uint16, value uint8) {
	if addr >= 0x4000 {
		return
	}
	if addr&0x0100 == 0 {
		m.ramEnabled = value&0x0F == 0x0A
	} else {
		bank := value & 0x0F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	}
}

func (m *mbc2) ReadRAM(addr uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	idx := int(addr-0xA000) % len(m.ram)
	return m.ram[idx] | 0xF0
}

func (m *mbc2) WriteRAM(addr uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	idx := int(addr-0xA000) % len(m.ram)
	m.ram[idx] = value & 0x0F
}

func (m *mbc2) SaveRAM() []byte     { return m.ram[:] }
func (m *mbc2) LoadRAM(data []byte) { copy(m.ram[:], data) }
