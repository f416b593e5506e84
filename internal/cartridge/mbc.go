package cartridge

// MemoryBankController is the contract every bank-controller family
// implements: bank-0 reads never move, bank-X reads/RAM reads route
// through whatever bank is currently selected, and ROM writes are
// repurposed as bank-switch control rather than data writes.
type MemoryBankController interface {
	ReadROMBank0(addr uint16) uint8
	ReadROMBankX(addr uint16) uint8
	WriteROM(addr uint16, value uint8)
	ReadRAM(addr uint16) uint8
	WriteRAM(addr uint16, value uint8)
}

// RAMBacked is implemented by controllers that expose battery-backed
// external RAM for save/load.
type RAMBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}
