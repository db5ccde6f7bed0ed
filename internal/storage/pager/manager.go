package pager

import "fmt"

// ───────────────────────────────────────────────────────────────────────────
// Page Manager contract
// ───────────────────────────────────────────────────────────────────────────

// PageManager is the contract shared by the Disk Layer and the Buffer
// Layer, so that the Buffer Layer is a transparent decorator over the Disk
// Layer: callers hold a PageManager and do not need to know which layer
// they are talking to.
type PageManager interface {
	// OpenDatabase opens or creates the file at path and returns a table
	// identifier usable as the first argument of every other method.
	OpenDatabase(path string) (TableID, error)

	// AllocPage returns a page number for exclusive use by the caller, or
	// PageInvalid if the file could not be grown.
	AllocPage(tid TableID) PageNumber

	// FreePage returns pn to the free list. After this call the caller
	// must not use pn until it is handed back by AllocPage.
	FreePage(tid TableID, pn PageNumber) error

	// ReadPage copies PageSize bytes from pn into dest.
	ReadPage(tid TableID, pn PageNumber, dest []byte) error

	// WritePage copies PageSize bytes from src into pn.
	WritePage(tid TableID, pn PageNumber, src []byte) error
}

// Grower is implemented by disk-backed PageManagers that can physically
// extend a table's file. The Buffer Layer needs this because new pages
// must exist on disk before they can be written through the cache.
type Grower interface {
	// GrowFile truncates the table's file so it holds newPageCount pages
	// and fsyncs the result.
	GrowFile(tid TableID, newPageCount PageNumber) error
}

// DiskLayer is what the Buffer Layer requires from whatever it decorates:
// the full PageManager contract plus GrowFile.
type DiskLayer interface {
	PageManager
	Grower
}

// ───────────────────────────────────────────────────────────────────────────
// Errors
// ───────────────────────────────────────────────────────────────────────────

// Code is one of the four open-path error codes from the original C
// interface. It is carried alongside an idiomatic wrapped error so callers
// that care about the numeric contract can recover it without a type
// switch on error strings.
type Code int

const (
	// CodeOpenFail is returned when an existing database file cannot be opened.
	CodeOpenFail Code = -1
	// CodeCreateFail is returned when a new database file cannot be created.
	CodeCreateFail Code = -2
	// CodeTruncateFail is returned when sizing a newly created file to its
	// initial page count fails. Growth failures during AllocPage are not
	// coded; AllocPage reports them by returning PageInvalid.
	CodeTruncateFail Code = -3
	// CodeValidateFail is returned when an existing file's header fails validation.
	CodeValidateFail Code = -4
)

// Error wraps an underlying I/O error with one of the four open-path
// codes.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Err, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }
