package regs

// MemorySize covers the AVR register file, I/O space and extended I/O space
// (0x0000-0x01FF) used by the ATmega328P and ATmega2560.
const MemorySize = 0x200

// ReadHook runs instead of a plain load. WriteHook runs instead of a plain
// store and receives the cell so it can decide what gets kept.
type (
	ReadHook  func(cell *uint8) uint8
	WriteHook func(cell *uint8, value uint8)
)

// Memory is a simulated data space for running peripheral code on a host.
// It is not safe for concurrent use; simulated interrupt handlers run on the
// caller's goroutine, just like on the target.
type Memory struct {
	cells  [MemorySize]uint8
	reads  map[uintptr]ReadHook
	writes map[uintptr]WriteHook

	// Loads and Stores count bus accesses per address, including hooked ones.
	Loads  [MemorySize]uint32
	Stores [MemorySize]uint32
}

// NewMemory returns a zeroed data space, matching power-on reset for the
// timer, USART and external interrupt registers.
func NewMemory() *Memory {
	return &Memory{
		reads:  make(map[uintptr]ReadHook),
		writes: make(map[uintptr]WriteHook),
	}
}

// Reg8 implements Bus.
func (m *Memory) Reg8(addr uintptr) Register8 {
	if addr >= MemorySize {
		panic("regs: address out of simulated data space")
	}
	return &memReg{m: m, addr: addr}
}

// MarkW1C turns addr into a write-one-to-clear flag register: each bit
// written as 1 clears the stored bit, bits written as 0 are left alone.
func (m *Memory) MarkW1C(addr uintptr) {
	m.writes[addr] = func(cell *uint8, value uint8) {
		*cell &^= value
	}
}

// Hook installs peripheral side effects for addr. Either hook may be nil.
func (m *Memory) Hook(addr uintptr, read ReadHook, write WriteHook) {
	if read != nil {
		m.reads[addr] = read
	} else {
		delete(m.reads, addr)
	}
	if write != nil {
		m.writes[addr] = write
	} else {
		delete(m.writes, addr)
	}
}

// Peek reads a cell without side effects or access counting.
func (m *Memory) Peek(addr uintptr) uint8 {
	return m.cells[addr]
}

// Poke writes a cell without side effects, the way hardware sets its own
// status bits.
func (m *Memory) Poke(addr uintptr, value uint8) {
	m.cells[addr] = value
}

// Peek16 reads a little-endian 16-bit register without side effects.
func (m *Memory) Peek16(addrL uintptr) uint16 {
	return uint16(m.cells[addrL+1])<<8 | uint16(m.cells[addrL])
}

// Poke16 writes a little-endian 16-bit register without side effects.
func (m *Memory) Poke16(addrL uintptr, value uint16) {
	m.cells[addrL] = uint8(value)
	m.cells[addrL+1] = uint8(value >> 8)
}

// Snapshot returns a copy of every cell.
func (m *Memory) Snapshot() [MemorySize]uint8 {
	return m.cells
}

// ResetCounters zeroes the access counters.
func (m *Memory) ResetCounters() {
	m.Loads = [MemorySize]uint32{}
	m.Stores = [MemorySize]uint32{}
}

func (m *Memory) load(addr uintptr) uint8 {
	m.Loads[addr]++
	if h, ok := m.reads[addr]; ok {
		return h(&m.cells[addr])
	}
	return m.cells[addr]
}

func (m *Memory) store(addr uintptr, value uint8) {
	m.Stores[addr]++
	if h, ok := m.writes[addr]; ok {
		h(&m.cells[addr], value)
		return
	}
	m.cells[addr] = value
}

// memReg is a Register8 backed by Memory. Read-modify-write helpers go
// through load and store so hooks see them exactly like the CPU's
// in/out sequence.
type memReg struct {
	m    *Memory
	addr uintptr
}

func (r *memReg) Get() uint8 {
	return r.m.load(r.addr)
}

func (r *memReg) Set(value uint8) {
	r.m.store(r.addr, value)
}

func (r *memReg) SetBits(value uint8) {
	r.m.store(r.addr, r.m.load(r.addr)|value)
}

func (r *memReg) ClearBits(value uint8) {
	r.m.store(r.addr, r.m.load(r.addr)&^value)
}

func (r *memReg) HasBits(value uint8) bool {
	return r.m.load(r.addr)&value > 0
}

func (r *memReg) ReplaceBits(value uint8, mask uint8, pos uint8) {
	r.m.store(r.addr, r.m.load(r.addr)&^(mask<<pos)|value<<pos)
}
