package cpu

// addSPSigned reads a signed 8-bit immediate and returns SP+n, with H
// and C computed from the unsigned low-byte addition of SP and n, the
// quirk ADD SP,n and LDHL SP,n share. Z and N are always cleared.
func (c *CPU) addSPSigned() uint16 {
	value := c.readOperand()
	result := uint16(int32(c.SP) + int32(int8(value)))

	quirk := c.SP ^ uint16(int8(value)) ^ result
	c.setFlags(false, false, quirk&0x10 == 0x10, quirk&0x100 == 0x100)

	c.tick(4)
	return result
}
