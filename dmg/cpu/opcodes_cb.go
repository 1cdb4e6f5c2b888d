package cpu

// initCBTable fills the CB-prefixed table. The encoding is fully
// regular: bits 7-6 select the group (rotate/shift, BIT, RES, SET),
// bits 5-3 the sub-operation or bit index, bits 2-0 the register.
func initCBTable() {
	rotOps := [8]func(*CPU, uint8) uint8{
		(*CPU).rlc, (*CPU).rrc, (*CPU).rl, (*CPU).rr,
		(*CPU).sla, (*CPU).sra, (*CPU).swap, (*CPU).srl,
	}

	for op := 0; op < 256; op++ {
		y := uint8(op) >> 3 & 7
		reg := uint8(op) & 7

		switch uint8(op) >> 6 {
		case 0:
			rot := rotOps[y]
			opcodesCB[op] = func(c *CPU) { c.writeReg8(reg, rot(c, c.readReg8(reg))) }
		case 1:
			opcodesCB[op] = func(c *CPU) { c.bitTest(y, c.readReg8(reg)) }
		case 2:
			opcodesCB[op] = func(c *CPU) { c.writeReg8(reg, c.readReg8(reg)&^(1<<y)) }
		default:
			opcodesCB[op] = func(c *CPU) { c.writeReg8(reg, c.readReg8(reg)|1<<y) }
		}
	}
}
