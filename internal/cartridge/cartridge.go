// Package cartridge decodes a ROM header, installs the matching memory
// bank controller, and serves ROM/RAM reads and writes for it. It also
// exposes battery-backed RAM as raw bytes (SaveBattery/LoadBattery);
// the System flushes those bytes to its BatteryStore before a new
// cartridge is installed.
package cartridge

import (
	"fmt"

	"github.com/cespare/xxhash"
)

// ErrorKind enumerates why a ROM failed to load.
type ErrorKind int

const (
	// ErrRead is an I/O failure reading the ROM file; the CORE itself
	// never performs this I/O, but a host handing raw bytes to
	// NewCartridge after its own failed read can still report it here.
	ErrRead ErrorKind = iota
	// ErrInvalidSize is a mismatch between the header's declared ROM
	// size and the actual byte slice length.
	ErrInvalidSize
	// ErrInvalidExtension is a declared RAM size on a cartridge type
	// that does not support external RAM.
	ErrInvalidExtension
	// ErrUnsupported is a cartridge-type or ROM/RAM-size byte with no
	// entry in the MBC table.
	ErrUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case ErrRead:
		return "read error"
	case ErrInvalidSize:
		return "invalid size"
	case ErrInvalidExtension:
		return "invalid extension"
	case ErrUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// RomLoadError is returned by NewCartridge. It never mutates any
// existing CORE state; a failed load leaves the previous cartridge
// installed.
type RomLoadError struct {
	Kind ErrorKind
	Err  error
}

func (e *RomLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cartridge: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("cartridge: %s", e.Kind)
}

func (e *RomLoadError) Unwrap() error { return e.Err }

// Meta is the subset of header data a host or debugger collaborator
// can observe without reaching into bank-controller internals.
type Meta struct {
	Title         string
	CGB           bool
	CartridgeType uint8
	ROMBanks      uint
	RAMBanks      uint
	HasBattery    bool
	Identity      uint64
}

// Cartridge owns a ROM image, its parsed header and its installed bank
// controller for the lifetime of one loaded game.
type Cartridge struct {
	Header Header
	mbc    MemoryBankController
	rom    []byte
	meta   Meta
}

// NewCartridge parses rom's header, validates the declared ROM/RAM
// sizes against the image, and installs the matching MBC. A returned
// error is always a *RomLoadError.
func NewCartridge(rom []byte) (*Cartridge, error) {
	if len(rom) < 0x150 {
		return nil, &RomLoadError{Kind: ErrInvalidSize, Err: fmt.Errorf("file too short: %d bytes", len(rom))}
	}

	h, err := parseHeader(rom)
	if err != nil {
		return nil, &RomLoadError{Kind: ErrUnsupported, Err: err}
	}

	if uint(len(rom)) != h.ROMSize() {
		return nil, &RomLoadError{Kind: ErrInvalidSize, Err: fmt.Errorf("file is %d bytes, header declares %d", len(rom), h.ROMSize())}
	}
	if !h.info.ram && h.RAMBanks != 0 {
		return nil, &RomLoadError{Kind: ErrInvalidExtension, Err: fmt.Errorf("cartridge type 0x%02X declares no RAM support but header requests %d bank(s)", h.CartridgeType, h.RAMBanks)}
	}

	var mbc MemoryBankController
	switch h.info.kind {
	case kindROMOnly:
		mbc = newROMOnly(rom, &h)
	case kindMBC1:
		mbc = newMBC1(rom, &h)
	case kindMBC2:
		mbc = newMBC2(rom, &h)
	case kindMBC3:
		mbc = newMBC3(rom, &h)
	case kindMBC5:
		mbc = newMBC5(rom, &h)
	default:
		return nil, &RomLoadError{Kind: ErrUnsupported, Err: fmt.Errorf("cartridge type 0x%02X has no MBC implementation", h.CartridgeType)}
	}

	c := &Cartridge{
		Header: h,
		mbc:    mbc,
		rom:    rom,
	}
	c.meta = Meta{
		Title:         h.Title,
		CGB:           h.GameboyColor(),
		CartridgeType: h.CartridgeType,
		ROMBanks:      h.ROMBanks,
		RAMBanks:      h.RAMBanks,
		HasBattery:    h.info.battery,
		Identity:      xxhash.Sum64(rom),
	}
	return c, nil
}

// Meta returns the cartridge's metadata. Safe to call on a nil
// receiver (returns the zero value) so a System with no cartridge
// loaded yet has something sane to report.
func (c *Cartridge) Meta() Meta {
	if c == nil {
		return Meta{}
	}
	return c.meta
}

// ReadROM routes a ROM read to bank 0 or bank X.
func (c *Cartridge) ReadROM(addr uint16) uint8 {
	if addr < 0x4000 {
		return c.mbc.ReadROMBank0(addr)
	}
	return c.mbc.ReadROMBankX(addr)
}

// WriteROM forwards a ROM-space write to the MBC as a control write.
func (c *Cartridge) WriteROM(addr uint16, value uint8) {
	c.mbc.WriteROM(addr, value)
}

// ReadRAM reads the cartridge's external RAM, if any.
func (c *Cartridge) ReadRAM(addr uint16) uint8 {
	return c.mbc.ReadRAM(addr)
}

// WriteRAM writes the cartridge's external RAM, if any.
func (c *Cartridge) WriteRAM(addr uint16, value uint8) {
	c.mbc.WriteRAM(addr, value)
}

// SaveBattery returns a copy of the extension's battery-backed RAM, or
// (nil, false) if the cartridge has no battery.
func (c *Cartridge) SaveBattery() ([]byte, bool) {
	if c == nil || !c.meta.HasBattery {
		return nil, false
	}
	backed, ok := c.mbc.(RAMBacked)
	if !ok {
		return nil, false
	}
	src := backed.SaveRAM()
	out := make([]byte, len(src))
	copy(out, src)
	return out, true
}

// LoadBattery restores previously-saved external RAM. It is a no-op if
// the cartridge has no battery.
func (c *Cartridge) LoadBattery(data []byte) bool {
	if c == nil || !c.meta.HasBattery {
		return false
	}
	backed, ok := c.mbc.(RAMBacked)
	if !ok {
		return false
	}
	backed.LoadRAM(data)
	return true
}
