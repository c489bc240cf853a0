package kernel

// AddressSpace stands in for the external virtual-memory collaborator of
// §6 (consumed): the page-table builder that maps the trampoline and
// trapframe pages and backs uvmalloc/uvmdealloc/uvmcopy/uvmfirst/uvmfree.
// Real page tables are out of scope (§1) — the scheduler core only needs
// something it can grow, shrink, duplicate on fork, and tear down on exit.
type AddressSpace interface {
	// Size returns the current size in bytes.
	Size() int64
	// Grow extends the address space by n bytes (n > 0). Returns the new
	// size, or an error if the underlying allocator is exhausted
	// (analogous to uvmalloc returning 0).
	Grow(n int64) (int64, error)
	// Shrink reduces the address space by n bytes (n > 0), analogous to
	// uvmdealloc.
	Shrink(n int64) int64
	// Fork duplicates the address space for a child process (uvmcopy).
	Fork() (AddressSpace, error)
	// Free releases all backing resources (uvmfree), called from freeproc.
	Free()
}

// memSpace is the trivial in-memory AddressSpace used by this module: it
// tracks only a logical size, since there is no real page table to build
// without a kernel underneath it.
type memSpace struct {
	size int64
}

// newAddressSpace constructs a fresh, empty address space (proc_pagetable
// + uvmfirst equivalent, minus the trampoline/trapframe mappings which
// have no meaning without real traps).
func newAddressSpace() AddressSpace {
	return &memSpace{}
}

func (m *memSpace) Size() int64 { return m.size }

func (m *memSpace) Grow(n int64) (int64, error) {
	m.size += n
	return m.size, nil
}

func (m *memSpace) Shrink(n int64) int64 {
	m.size -= n
	if m.size < 0 {
		m.size = 0
	}
	return m.size
}

func (m *memSpace) Fork() (AddressSpace, error) {
	return &memSpace{size: m.size}, nil
}

func (m *memSpace) Free() {
	m.size = 0
}
