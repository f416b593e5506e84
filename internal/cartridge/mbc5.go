package cartridge

// mbc5 supports up to 512 ROM banks (a 9-bit bank number split across
// two write windows) and 64 RAM banks.
type mbc5 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBankLo  uint8
	romBankHi  uint8 // bit 0 only
	ramBank    uint8 // 4 bits

	romBanks uint
	ramBanks uint
}

func newMBC5(rom []byte, h *Header) *mbc5 {
	return &mbc5{
		rom:       rom,
		ram:       make([]byte, h.RAMSize()),
		romBankLo: 1,
		romBanks:  h.ROMBanks,
		ramBanks:  h.RAMBanks,
	}
}

func (m *mbc5) romBank() uint {
	bank := uint(m.romBankHi&0x01)<<8 | uint(m.romBankLo)
	if m.romBanks > 0 {
		bank %= m.romBanks
	}
	return bank
}

func (m *mbc5) ReadROMBank0(addr uint16) uint8 { return m.rom[addr] }

func (m *mbc5) ReadROMBankX(addr uint16) uint8 {
	idx := m.romBank()*0x4000 + uint(addr-0x4000)
	if int(idx) < len(m.rom) {
		return m.rom[idx]
	}
	return 0xFF
}

func (m *mbc5) WriteROM(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x3000:
		m.romBankLo = value
	case addr < 0x4000:
		m.romBankHi = value & 0x01
	case addr < 0x6000:
		m.ramBank = value & 0x0F
	}
}

func (m *mbc5) ReadRAM(addr uint16) uint8 {
	if !m.ramEnabled || len(m.ram) == 0 {
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

func (m *mbc5) WriteRAM(addr uint16, value uint8) {
	if !m.ramEnabled || len(m.ram) == 0 {
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

func (m *mbc5) SaveRAM() []byte     { return m.ram }
func (m *mbc5) LoadRAM(data []byte) { copy(m.ram, data) }
