// Package pager implements the paged storage substrate of the database:
// a fixed-size page file with an on-disk free-list allocator (the Disk
// Layer), fronted by a write-back buffer pool using LRU replacement (the
// Buffer Layer). The record manager, B+Tree index, catalog, and WAL live
// one level up and are not part of this package.
package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// Constants
// ───────────────────────────────────────────────────────────────────────────

const (
	// PageSize is the fixed size, in bytes, of every page on disk and in
	// the buffer pool.
	PageSize = 4096

	// BufferSize is the number of frames preallocated by the Buffer Layer.
	BufferSize = 2048

	// magicNumber identifies a file as a page store. Stored at offset 0 of
	// the header page.
	magicNumber uint64 = 0x12341234
)

// InitialPagesNumber is the number of pages a freshly created database
// file starts with.
const InitialPagesNumber PageNumber = 256

// PageNumber indexes a page within a table's file. Page 0 is the header
// page; the same value also means "no free page" (PN_EOFREE) and "invalid
// page" (PN_INVALID) — the overload is safe because the header page is
// never placed on the free list.
type PageNumber uint64

const (
	// PageHeader is the page number of the header page.
	PageHeader PageNumber = 0
	// PageInvalid is returned by AllocPage on failure.
	PageInvalid PageNumber = 0
	// PageEOFree terminates the on-disk free list.
	PageEOFree PageNumber = 0
)

// TableID is the opaque, non-negative identifier returned by OpenDatabase.
// Callers must not assume it is a file descriptor.
type TableID int32

// TableIDInvalid marks a frame or slot that is not bound to any table.
const TableIDInvalid TableID = -1

// ───────────────────────────────────────────────────────────────────────────
// Header page — offset 0: magic (u64), offset 8: free_page_number (u64),
// offset 16: number_of_pages (u64). Remaining bytes are reserved.
// ───────────────────────────────────────────────────────────────────────────

const (
	headerMagicOff = 0
	headerFreeOff  = 8
	headerCountOff = 16
)

// HeaderPage is a typed view over a header page buffer. It does not copy
// or retain the buffer; callers must keep buf alive and PageSize long.
type HeaderPage struct {
	buf []byte
}

// WrapHeaderPage views an existing page buffer as a header page.
func WrapHeaderPage(buf []byte) *HeaderPage { return &HeaderPage{buf: buf} }

// MagicNumber returns the stored magic number.
func (h *HeaderPage) MagicNumber() uint64 {
	return binary.LittleEndian.Uint64(h.buf[headerMagicOff : headerMagicOff+8])
}

// SetMagicNumber writes the magic number.
func (h *HeaderPage) SetMagicNumber(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[headerMagicOff:headerMagicOff+8], v)
}

// FreePageNumber returns the head of the on-disk free list, or PageEOFree
// if the list is empty.
func (h *HeaderPage) FreePageNumber() PageNumber {
	return PageNumber(binary.LittleEndian.Uint64(h.buf[headerFreeOff : headerFreeOff+8]))
}

// SetFreePageNumber sets the head of the on-disk free list.
func (h *HeaderPage) SetFreePageNumber(pn PageNumber) {
	binary.LittleEndian.PutUint64(h.buf[headerFreeOff:headerFreeOff+8], uint64(pn))
}

// NumberOfPages returns the total number of pages currently in the file.
func (h *HeaderPage) NumberOfPages() PageNumber {
	return PageNumber(binary.LittleEndian.Uint64(h.buf[headerCountOff : headerCountOff+8]))
}

// SetNumberOfPages sets the total number of pages currently in the file.
func (h *HeaderPage) SetNumberOfPages(pn PageNumber) {
	binary.LittleEndian.PutUint64(h.buf[headerCountOff:headerCountOff+8], uint64(pn))
}

// ───────────────────────────────────────────────────────────────────────────
// Free page — offset 0: next_free_page_number (u64). Remainder reserved.
// ───────────────────────────────────────────────────────────────────────────

const freeNextOff = 0

// FreePageView is a typed view over a free page buffer.
type FreePageView struct {
	buf []byte
}

// WrapFreePage views an existing page buffer as a free page.
func WrapFreePage(buf []byte) *FreePageView { return &FreePageView{buf: buf} }

// NextFreePageNumber returns the next page in the free list, or PageEOFree
// if this is the last free page.
func (f *FreePageView) NextFreePageNumber() PageNumber {
	return PageNumber(binary.LittleEndian.Uint64(f.buf[freeNextOff : freeNextOff+8]))
}

// SetNextFreePageNumber sets the next page in the free list.
func (f *FreePageView) SetNextFreePageNumber(pn PageNumber) {
	binary.LittleEndian.PutUint64(f.buf[freeNextOff:freeNextOff+8], uint64(pn))
}

// NewPageBuffer returns a zeroed, PageSize-long page buffer.
func NewPageBuffer() []byte {
	return make([]byte, PageSize)
}
