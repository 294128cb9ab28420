package kernel

// VA is a user virtual address.
type VA uint32

// Paging geometry: two levels of 1024 entries over 4 KiB pages.
const (
	PageSize   = 4096
	PageShift  = 12
	PDXShift   = 22
	NPDEntries = 1024
	NPTEntries = 1024

	// PTSize is the number of bytes mapped by one page directory entry.
	PTSize = PageSize * NPTEntries
)

// User address space layout. Everything at or above UTop belongs to the
// kernel and cannot be mapped by user code.
const (
	UTop VA = 0xeec00000

	// UXStackTop is the top of the one-page user exception stack, the last
	// user page below UTop.
	UXStackTop VA = UTop

	// UStackTop is the top of the normal user stack. One empty guard page
	// separates it from the exception stack.
	UStackTop VA = UTop - 2*PageSize

	// UTemp is a scratch region for temporary mappings.
	UTemp VA = 0x00400000

	// PFTemp is the scratch page the copy-on-write fault handler copies
	// through.
	PFTemp VA = UTemp + PTSize - PageSize
)

// NoPage is passed where a page address is optional to mean "no page".
// Zero cannot serve, it is a valid user page.
const NoPage = UTop

// UXStackPage is the page that holds the exception stack.
const UXStackPage = UXStackTop - PageSize

// PageNum returns the virtual page number of va.
func (va VA) PageNum() uint32 { return uint32(va) >> PageShift }

// PDX returns the page directory index of va.
func (va VA) PDX() uint32 { return (uint32(va) >> PDXShift) & (NPDEntries - 1) }

// PTX returns the page table index of va.
func (va VA) PTX() uint32 { return (uint32(va) >> PageShift) & (NPTEntries - 1) }

// Offset returns the offset of va within its page.
func (va VA) Offset() uint32 { return uint32(va) & (PageSize - 1) }

// RoundDown returns va aligned down to its page.
func (va VA) RoundDown() VA { return va &^ (PageSize - 1) }

// Aligned reports whether va is page aligned.
func (va VA) Aligned() bool { return va.Offset() == 0 }

// PageAddr returns the address of virtual page vpn.
func PageAddr(vpn uint32) VA { return VA(vpn << PageShift) }
