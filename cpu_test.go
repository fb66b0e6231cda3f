package v32

import "testing"

// newTestCPU wires a CPU over RAM-backed buses, with the program
// written starting at address 0 and the stack occupying the whole
// RAM region, mirroring the teacher's NewCPU(bus)-then-Write32 setup.
func newTestCPU(ramWords int, program []Word) (*CPU, *MemoryBus, *ControlBus) {
	memBus := NewMemoryBus()
	ctrlBus := NewControlBus()
	ram := NewRAM(ramWords)
	memBus.Connect(MemSlotRAM, ram)

	for i, w := range program {
		ram.WriteWord(uint32(i*4), w)
	}

	cpu := NewCPU(memBus, ctrlBus, 0, uint32(ramWords*4), 0)
	cpu.registers[RegStackPtr] = Word(ramWords * 4)
	return cpu, memBus, ctrlBus
}

func inst(opcode byte, usesImmediate bool, r1, r2, mode byte, port uint16) Word {
	return Instruction{Opcode: opcode, UsesImmediate: usesImmediate, Register1: r1, Register2: r2, AddressingMode: mode, PortNumber: port}.Encode()
}

func TestCPUMovRegFromImm(t *testing.T) {
	program := []Word{inst(OpMOV, true, 0, 0, AddrRegFromImm, 0), 99}
	cpu, _, _ := newTestCPU(16, program)
	if err := cpu.Step(); err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	if cpu.Register(0) != 99 {
		t.Fatalf("R0 = %d, want 99", cpu.Register(0))
	}
}

func TestCPUIntegerArithmeticOverflowWraps(t *testing.T) {
	program := []Word{inst(OpIADD, true, 0, 0, 0, 0), WordFromInt(1)}
	cpu, _, _ := newTestCPU(16, program)
	cpu.SetRegister(0, WordFromInt(2147483647))
	if err := cpu.Step(); err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	if cpu.Register(0).AsInt() != -2147483648 {
		t.Fatalf("overflow did not wrap: got %d", cpu.Register(0).AsInt())
	}
}

func TestCPUDivisionByZeroTraps(t *testing.T) {
	program := []Word{inst(OpIDIV, true, 0, 0, 0, 0), WordFromInt(0)}
	cpu, _, _ := newTestCPU(16, program)
	cpu.SetRegister(0, WordFromInt(10))
	err := cpu.Step()
	if err == nil || err.Code != ErrDivisionError {
		t.Fatalf("Step() = %v, want DivisionError trap", err)
	}
}

func TestCPUAcosDomainErrorTraps(t *testing.T) {
	program := []Word{inst(OpACOS, false, 0, 0, 0, 0)}
	cpu, _, _ := newTestCPU(16, program)
	cpu.SetRegister(0, WordFromFloat(2.0))
	err := cpu.Step()
	if err == nil || err.Code != ErrArcCosineError {
		t.Fatalf("Step() = %v, want ArcCosineError trap", err)
	}
}

func TestCPUStackOverflowTraps(t *testing.T) {
	program := []Word{inst(OpPUSH, false, 0, 0, 0, 0)}
	cpu, _, _ := newTestCPU(16, program)
	cpu.registers[RegStackPtr] = 0 // already at the bottom of RAM
	err := cpu.Step()
	if err == nil || err.Code != ErrStackOverflow {
		t.Fatalf("Step() = %v, want StackOverflow trap", err)
	}
}

func TestCPUCallRetRoundTrip(t *testing.T) {
	program := []Word{
		inst(OpCALL, true, 0, 0, 0, 0), WordFromInt(16), // word 0,1: CALL 16
		inst(OpHLT, false, 0, 0, 0, 0), // word 2 (address 8): return lands here... adjust below
	}
	cpu, memBus, _ := newTestCPU(16, program)
	// Place a RET at address 16 (word index 4).
	memBus.Write(16, inst(OpRET, false, 0, 0, 0, 0))

	if err := cpu.Step(); err != nil { // CALL
		t.Fatalf("CALL trapped: %v", err)
	}
	if cpu.IP() != 16 {
		t.Fatalf("IP after CALL = %d, want 16", cpu.IP())
	}
	if err := cpu.Step(); err != nil { // RET
		t.Fatalf("RET trapped: %v", err)
	}
	if cpu.IP() != 8 {
		t.Fatalf("IP after RET = %d, want 8 (the saved return address)", cpu.IP())
	}
}

func TestCPUHaltStopsStepping(t *testing.T) {
	program := []Word{inst(OpHLT, false, 0, 0, 0, 0)}
	cpu, _, _ := newTestCPU(16, program)
	cpu.Step()
	if !cpu.Halted() {
		t.Fatalf("CPU should be halted after HLT")
	}
	ipBefore := cpu.IP()
	cpu.Step()
	if cpu.IP() != ipBefore {
		t.Fatalf("Step() after halt should not advance IP")
	}
}

func TestCPUResetRestoresBiosEntryAndStack(t *testing.T) {
	cpu, _, _ := newTestCPU(16, nil)
	cpu.SetRegister(0, 123)
	cpu.halted = true
	cpu.Reset()
	if cpu.Register(0) != 0 {
		t.Fatalf("Reset should zero general registers")
	}
	if cpu.Halted() {
		t.Fatalf("Reset should clear Halted")
	}
	if cpu.Register(RegStackPtr) != Word(16*4) {
		t.Fatalf("Reset should set SP to the top of RAM")
	}
}
