package cpu

// opcode executes one instruction body. The opcode byte itself has
// already been fetched (and ticked); every further memory access and
// internal delay ticks inside the handler, which is where the canonical
// cycle counts come from.
type opcode func(*CPU)

var opcodes [256]opcode
var opcodesCB [256]opcode

// illegalOpcodes marks the 11 holes in the LR35902 map. Executing one
// latches the core into a stall.
var illegalOpcodes [256]bool

func init() {
	for _, op := range []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		illegalOpcodes[op] = true
	}

	// LD r,r' fills 0x40-0x7F; 0x76 in the middle of the block is HALT.
	for dst := uint8(0); dst < 8; dst++ {
		for src := uint8(0); src < 8; src++ {
			op := 0x40 | dst<<3 | src
			if op == 0x76 {
				continue
			}
			dst, src := dst, src
			opcodes[op] = func(c *CPU) { c.writeReg8(dst, c.readReg8(src)) }
		}
	}

	// ALU A,r fills 0x80-0xBF, eight operations by bits 5-3.
	aluOps := [8]func(*CPU, uint8){
		(*CPU).addA, (*CPU).adcA, (*CPU).subA, (*CPU).sbcA,
		(*CPU).andA, (*CPU).xorA, (*CPU).orA, (*CPU).cpA,
	}
	for i, alu := range aluOps {
		for src := uint8(0); src < 8; src++ {
			alu, src := alu, src
			opcodes[0x80|uint8(i)<<3|src] = func(c *CPU) { alu(c, c.readReg8(src)) }
		}
	}

	// LD r,n / INC r / DEC r, one per register column.
	for r := uint8(0); r < 8; r++ {
		r := r
		opcodes[0x06|r<<3] = func(c *CPU) { c.writeReg8(r, c.fetchByte()) }
		opcodes[0x04|r<<3] = func(c *CPU) { c.writeReg8(r, c.inc8(c.readReg8(r))) }
		opcodes[0x05|r<<3] = func(c *CPU) { c.writeReg8(r, c.dec8(c.readReg8(r))) }
	}

	// 0x00 block: 16-bit loads, indirect A loads, rotates, control.
	opcodes[0x00] = func(c *CPU) {} // NOP
	opcodes[0x01] = func(c *CPU) { c.setBC(c.fetchWord()) }
	opcodes[0x02] = func(c *CPU) { c.write(c.getBC(), c.a) }
	opcodes[0x03] = func(c *CPU) { c.setBC(c.getBC() + 1); c.tick() }
	opcodes[0x07] = func(c *CPU) { c.rlca() }
	opcodes[0x08] = func(c *CPU) { // LD (nn),SP
		target := c.fetchWord()
		c.write(target, uint8(c.sp))
		c.write(target+1, uint8(c.sp>>8))
	}
	opcodes[0x09] = func(c *CPU) { c.addHL(c.getBC()) }
	opcodes[0x0A] = func(c *CPU) { c.a = c.read(c.getBC()) }
	opcodes[0x0B] = func(c *CPU) { c.setBC(c.getBC() - 1); c.tick() }
	opcodes[0x0F] = func(c *CPU) { c.rrca() }

	opcodes[0x10] = func(c *CPU) { c.pc++ } // STOP: skip the pad byte
	opcodes[0x11] = func(c *CPU) { c.setDE(c.fetchWord()) }
	opcodes[0x12] = func(c *CPU) { c.write(c.getDE(), c.a) }
	opcodes[0x13] = func(c *CPU) { c.setDE(c.getDE() + 1); c.tick() }
	opcodes[0x17] = func(c *CPU) { c.rla() }
	opcodes[0x18] = func(c *CPU) { c.jr(true) }
	opcodes[0x19] = func(c *CPU) { c.addHL(c.getDE()) }
	opcodes[0x1A] = func(c *CPU) { c.a = c.read(c.getDE()) }
	opcodes[0x1B] = func(c *CPU) { c.setDE(c.getDE() - 1); c.tick() }
	opcodes[0x1F] = func(c *CPU) { c.rra() }

	opcodes[0x20] = func(c *CPU) { c.jr(!c.flag(flagZ)) }
	opcodes[0x21] = func(c *CPU) { c.setHL(c.fetchWord()) }
	opcodes[0x22] = func(c *CPU) { c.write(c.getHL(), c.a); c.setHL(c.getHL() + 1) }
	opcodes[0x23] = func(c *CPU) { c.setHL(c.getHL() + 1); c.tick() }
	opcodes[0x27] = func(c *CPU) { c.daa() }
	opcodes[0x28] = func(c *CPU) { c.jr(c.flag(flagZ)) }
	opcodes[0x29] = func(c *CPU) { c.addHL(c.getHL()) }
	opcodes[0x2A] = func(c *CPU) { c.a = c.read(c.getHL()); c.setHL(c.getHL() + 1) }
	opcodes[0x2B] = func(c *CPU) { c.setHL(c.getHL() - 1); c.tick() }
	opcodes[0x2F] = func(c *CPU) { // CPL
		c.a = ^c.a
		c.setFlag(flagN, true)
		c.setFlag(flagH, true)
	}

	opcodes[0x30] = func(c *CPU) { c.jr(!c.flag(flagC)) }
	opcodes[0x31] = func(c *CPU) { c.sp = c.fetchWord() }
	opcodes[0x32] = func(c *CPU) { c.write(c.getHL(), c.a); c.setHL(c.getHL() - 1) }
	opcodes[0x33] = func(c *CPU) { c.sp++; c.tick() }
	opcodes[0x37] = func(c *CPU) { // SCF
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, true)
	}
	opcodes[0x38] = func(c *CPU) { c.jr(c.flag(flagC)) }
	opcodes[0x39] = func(c *CPU) { c.addHL(c.sp) }
	opcodes[0x3A] = func(c *CPU) { c.a = c.read(c.getHL()); c.setHL(c.getHL() - 1) }
	opcodes[0x3B] = func(c *CPU) { c.sp--; c.tick() }
	opcodes[0x3F] = func(c *CPU) { // CCF
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, !c.flag(flagC))
	}

	opcodes[0x76] = func(c *CPU) { c.halt() }

	// 0xC0 block: stack, calls, returns, immediate ALU, prefix.
	opcodes[0xC0] = func(c *CPU) { c.retIf(!c.flag(flagZ)) }
	opcodes[0xC1] = func(c *CPU) { c.setBC(c.popWord()) }
	opcodes[0xC2] = func(c *CPU) { c.jp(!c.flag(flagZ)) }
	opcodes[0xC3] = func(c *CPU) { c.jp(true) }
	opcodes[0xC4] = func(c *CPU) { c.call(!c.flag(flagZ)) }
	opcodes[0xC5] = func(c *CPU) { c.tick(); c.pushWord(c.getBC()) }
	opcodes[0xC6] = func(c *CPU) { c.addA(c.fetchByte()) }
	opcodes[0xC8] = func(c *CPU) { c.retIf(c.flag(flagZ)) }
	opcodes[0xC9] = func(c *CPU) { c.ret() }
	opcodes[0xCA] = func(c *CPU) { c.jp(c.flag(flagZ)) }
	opcodes[0xCB] = func(c *CPU) { opcodesCB[c.fetchByte()](c) }
	opcodes[0xCC] = func(c *CPU) { c.call(c.flag(flagZ)) }
	opcodes[0xCD] = func(c *CPU) { c.call(true) }
	opcodes[0xCE] = func(c *CPU) { c.adcA(c.fetchByte()) }

	opcodes[0xD0] = func(c *CPU) { c.retIf(!c.flag(flagC)) }
	opcodes[0xD1] = func(c *CPU) { c.setDE(c.popWord()) }
	opcodes[0xD2] = func(c *CPU) { c.jp(!c.flag(flagC)) }
	opcodes[0xD4] = func(c *CPU) { c.call(!c.flag(flagC)) }
	opcodes[0xD5] = func(c *CPU) { c.tick(); c.pushWord(c.getDE()) }
	opcodes[0xD6] = func(c *CPU) { c.subA(c.fetchByte()) }
	opcodes[0xD8] = func(c *CPU) { c.retIf(c.flag(flagC)) }
	opcodes[0xD9] = func(c *CPU) { c.ret(); c.ime = true } // RETI
	opcodes[0xDA] = func(c *CPU) { c.jp(c.flag(flagC)) }
	opcodes[0xDC] = func(c *CPU) { c.call(c.flag(flagC)) }
	opcodes[0xDE] = func(c *CPU) { c.sbcA(c.fetchByte()) }

	opcodes[0xE0] = func(c *CPU) { c.write(0xFF00+uint16(c.fetchByte()), c.a) }
	opcodes[0xE1] = func(c *CPU) { c.setHL(c.popWord()) }
	opcodes[0xE2] = func(c *CPU) { c.write(0xFF00+uint16(c.c), c.a) }
	opcodes[0xE5] = func(c *CPU) { c.tick(); c.pushWord(c.getHL()) }
	opcodes[0xE6] = func(c *CPU) { c.andA(c.fetchByte()) }
	opcodes[0xE8] = func(c *CPU) { // ADD SP,e8
		c.sp = c.spOffset(c.fetchByte())
		c.tick()
		c.tick()
	}
	opcodes[0xE9] = func(c *CPU) { c.pc = c.getHL() }
	opcodes[0xEA] = func(c *CPU) { c.write(c.fetchWord(), c.a) }
	opcodes[0xEE] = func(c *CPU) { c.xorA(c.fetchByte()) }

	opcodes[0xF0] = func(c *CPU) { c.a = c.read(0xFF00 + uint16(c.fetchByte())) }
	opcodes[0xF1] = func(c *CPU) { c.setAF(c.popWord()) }
	opcodes[0xF2] = func(c *CPU) { c.a = c.read(0xFF00 + uint16(c.c)) }
	opcodes[0xF3] = func(c *CPU) { c.ime = false; c.imePending = false } // DI
	opcodes[0xF5] = func(c *CPU) { c.tick(); c.pushWord(c.getAF()) }
	opcodes[0xF6] = func(c *CPU) { c.orA(c.fetchByte()) }
	opcodes[0xF8] = func(c *CPU) { // LD HL,SP+e8
		c.setHL(c.spOffset(c.fetchByte()))
		c.tick()
	}
	opcodes[0xF9] = func(c *CPU) { c.sp = c.getHL(); c.tick() }
	opcodes[0xFA] = func(c *CPU) { c.a = c.read(c.fetchWord()) }
	opcodes[0xFB] = func(c *CPU) { c.imePending = true } // EI
	opcodes[0xFE] = func(c *CPU) { c.cpA(c.fetchByte()) }

	// RST vectors every 8 bytes from 0xC7.
	for i := uint16(0); i < 8; i++ {
		vector := i * 8
		opcodes[0xC7+uint8(i)*8] = func(c *CPU) { c.rst(vector) }
	}

	// Anything left unassigned is an illegal opcode; give them a body so
	// the table has no nil holes even if the stall check is bypassed.
	for i := range opcodes {
		if opcodes[i] == nil {
			opcodes[i] = func(c *CPU) { c.stalled = true }
		}
	}

	initCBTable()
}
