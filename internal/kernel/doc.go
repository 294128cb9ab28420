// Package kernel is an in-memory exokernel that exports just enough
// mechanism for user code to implement fork and IPC itself.
//
// It keeps an env table (NEnv slots, ids carry a generation), a
// reference-counted physical page arena, and one two-level page table per
// env covering the addresses below UTop. User code reaches it only through
// its own *Env handle:
//
//   - page syscalls: PageAlloc, PageMap, PageUnmap
//   - env syscalls: Exofork, SetStatus, SetPgfaultUpcall, Destroy, Yield
//   - IPC: IPCRecv, IPCTrySend, and the blocking IPCSend
//   - read-only views: GetEnvID, This, Envs, VPD, VPT, IPC
//   - memory access: Load, Store, LoadUint32, StoreUint32
//
// Memory access goes through the page tables. An access the mapping does
// not allow becomes a page fault, delivered to the env's upcall when one is
// installed and its exception stack page is mapped writable; the access is
// then retried. Without an upcall the env is destroyed.
//
// Each env runs on its own goroutine and a single lock serializes all
// kernel state, so every system call runs to completion. An env suspends
// only while blocked in IPCRecv or IPCSend. Fatal conditions in user code
// are raised with Env.Panicf; the env runner recovers the *Abort, tears the
// env down and reports it from Wait.
package kernel
