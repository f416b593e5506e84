package cartridge

// romOnly is the no-bank-controller case: cartridge type 0x00/0x08/0x09.
// ROM never switches banks; RAM (if declared) is a single flat region.
type romOnly struct {
	rom []byte
	ram []byte
}

func newROMOnly(rom []byte, h *Header) *romOnly {
	return &romOnly{rom: rom, ram: make([]byte, h.RAMSize())}
}

func (r *romOnly) ReadROMBank0(addr uint16) uint8 { return r.rom[addr] }

func (r *romOnly) ReadROMBankX(addr uint16) uint8 {
	idx := int(addr)
	if idx < len(r.rom) {
		return r.rom[idx]
	}
	return 0xFF
}

func (r *romOnly) WriteROM(addr uint16, value uint8) {}

func (r *romOnly) ReadRAM(addr uint16) uint8 {
	idx := int(addr - 0xA000)
	if idx < len(r.ram) {
		return r.ram[idx]
	}
	return 0xFF
}

func (r *romOnly) WriteRAM(addr uint16, value uint8) {
	idx := int(addr - 0xA000)
	if idx < len(r.ram) {
		r.ram[idx] = value
	}
}

func (r *romOnly) SaveRAM() []byte     { return r.ram }
func (r *romOnly) LoadRAM(data []byte) { copy(r.ram, data) }
