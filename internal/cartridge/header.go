package cartridge

import "fmt"

// Flag reports a cartridge's Game Boy Color compatibility, decoded from
// the byte at 0x143.
type Flag uint8

const (
	FlagOnlyDMG Flag = iota
	FlagSupportsCGB
	FlagOnlyCGB
)

// mbcKind identifies the bank-controller family a cartridge type maps
// to; it drives which MemoryBankController implementation Cartridge
// installs.
type mbcKind uint8

const (
	kindROMOnly mbcKind = iota
	kindMBC1
	kindMBC2
	kindMBC3
	kindMBC5
)

// typeInfo is what a cartridge-type byte (0x147) tells us about the
// hardware the header is asking for.
type typeInfo struct {
	kind    mbcKind
	ram     bool
	battery bool
	rtc     bool
}

var cartridgeTypes = map[uint8]typeInfo{
	0x00: {kindROMOnly, false, false, false},
	0x01: {kindMBC1, false, false, false},
	0x02: {kindMBC1, true, false, false},
	0x03: {kindMBC1, true, true, false},
	0x05: {kindMBC2, false, false, false},
	0x06: {kindMBC2, false, true, false},
	0x08: {kindROMOnly, true, false, false},
	0x09: {kindROMOnly, true, true, false},
	0x0F: {kindMBC3, false, true, true},
	0x10: {kindMBC3, true, true, true},
	0x11: {kindMBC3, false, false, false},
	0x12: {kindMBC3, true, false, false},
	0x13: {kindMBC3, true, true, false},
	0x19: {kindMBC5, false, false, false},
	0x1A: {kindMBC5, true, false, false},
	0x1B: {kindMBC5, true, true, false},
	0x1C: {kindMBC5, false, false, false},
	0x1D: {kindMBC5, true, false, false},
	0x1E: {kindMBC5, true, true, false},
}

// romBankCount decodes the 0x148 ROM-size byte into a bank count.
// Values 0-7 follow the 2<<n doubling series; three out-of-band values
// (used by a handful of real cartridges) give odd bank counts.
func romBankCount(b uint8) (uint, bool) {
	switch b {
	case 0x52:
		return 72, true
	case 0x53:
		return 80, true
	case 0x54:
		return 96, true
	}
	if b > 7 {
		return 0, false
	}
	return 2 << uint(b), true
}

// ramBankCounts is keyed by the 0x149 RAM-size byte; each bank is
// 2 KiB.
var ramBankCounts = [...]uint{0: 0, 1: 1, 2: 1, 3: 4, 4: 16, 5: 32}

const ramBankSize = 2 * 1024

// Header is the parsed 0x100-0x14F cartridge header.
type Header struct {
	Title            string
	ManufacturerCode string
	CGBFlag          Flag
	CartridgeType    uint8
	ROMBanks         uint
	RAMBanks         uint
	HeaderChecksum   uint8
	GlobalChecksum   uint16

	info typeInfo
}

// RAMSize is the total external RAM size in bytes this header
// declares.
func (h *Header) RAMSize() uint { return h.RAMBanks * ramBankSize }

// ROMSize is the total ROM size in bytes this header declares.
func (h *Header) ROMSize() uint { return h.ROMBanks * 16 * 1024 }

// GameboyColor reports whether the cartridge declares CGB support
// (optional or mandatory).
func (h *Header) GameboyColor() bool {
	return h.CGBFlag == FlagSupportsCGB || h.CGBFlag == FlagOnlyCGB
}

// HasBattery reports whether the extension's RAM is battery-backed.
func (h *Header) HasBattery() bool { return h.info.battery }

// HasRAM reports whether the cartridge type supports external RAM at
// all (independent of whether RAMBanks is non-zero).
func (h *Header) HasRAM() bool { return h.info.ram }

// parseHeader reads the 0x100-0x14F window of a ROM image. rom must be
// at least 0x150 bytes; the caller validates overall file length
// separately.
func parseHeader(rom []byte) (Header, error) {
	h := Header{}

	switch rom[0x143] {
	case 0x80:
		h.CGBFlag = FlagSupportsCGB
	case 0xC0:
		h.CGBFlag = FlagOnlyCGB
	default:
		h.CGBFlag = FlagOnlyDMG
	}

	titleEnd := 0x144
	if h.CGBFlag == FlagOnlyDMG {
		titleEnd = 0x144
	}
	h.Title = trimTitle(rom[0x134:titleEnd])
	h.ManufacturerCode = string(rom[0x13F:0x143])

	h.CartridgeType = rom[0x147]
	info, ok := cartridgeTypes[h.CartridgeType]
	if !ok {
		return h, fmt.Errorf("unsupported cartridge type 0x%02X", h.CartridgeType)
	}
	h.info = info

	banks, ok := romBankCount(rom[0x148])
	if !ok {
		return h, fmt.Errorf("unsupported ROM size byte 0x%02X", rom[0x148])
	}
	h.ROMBanks = banks

	ramByte := rom[0x149]
	if int(ramByte) >= len(ramBankCounts) {
		return h, fmt.Errorf("unsupported RAM size byte 0x%02X", ramByte)
	}
	h.RAMBanks = ramBankCounts[ramByte]

	h.HeaderChecksum = rom[0x14D]
	h.GlobalChecksum = uint16(rom[0x14E])<<8 | uint16(rom[0x14F])

	return h, nil
}

func trimTitle(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0x00 {
		n--
	}
	return string(b[:n])
}
