package pager

import (
	"fmt"
	"os"
	"sync"
)

// ───────────────────────────────────────────────────────────────────────────
// Disk Layer
// ───────────────────────────────────────────────────────────────────────────
//
// DiskManager owns the file handles, defines the on-disk format, and
// performs page-grained synchronous I/O: every WritePage (and every page
// written during file creation or growth) is followed by an fsync, so a
// successful write is durable on return. There is no caching here — every
// ReadPage and WritePage is a positional syscall.

// DiskManager is the Disk Layer implementation of PageManager.
type DiskManager struct {
	mu    sync.Mutex
	files []*os.File // indexed by TableID
}

// NewDiskManager returns an empty DiskManager. File handles are opened by
// OpenDatabase and released by Close.
func NewDiskManager() *DiskManager {
	return &DiskManager{}
}

// OpenDatabase opens the file at path read-write, creating and formatting
// it if it does not already exist, and validating its header magic if it
// does.
func (d *DiskManager) OpenDatabase(path string) (TableID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var f *os.File
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = openExistingFile(path)
	} else {
		f, err = createFormattedFile(path)
	}
	if err != nil {
		return TableIDInvalid, err
	}

	tid := TableID(len(d.files))
	d.files = append(d.files, f)
	return tid, nil
}

func openExistingFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, &Error{Code: CodeOpenFail, Err: fmt.Errorf("open database file %q: %w", path, err)}
	}

	buf := NewPageBuffer()
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, &Error{Code: CodeOpenFail, Err: fmt.Errorf("read header page of %q: %w", path, err)}
	}
	if WrapHeaderPage(buf).MagicNumber() != magicNumber {
		f.Close()
		return nil, &Error{Code: CodeValidateFail, Err: fmt.Errorf("%q: bad magic number", path)}
	}
	return f, nil
}

// createFormattedFile creates path, truncates it to the initial size, and
// writes the header page plus the initial free-list chain (pages
// 1..InitialPagesNumber-2 each pointing to the next, InitialPagesNumber-1
// terminating it).
func createFormattedFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, &Error{Code: CodeCreateFail, Err: fmt.Errorf("create database file %q: %w", path, err)}
	}

	if err := f.Truncate(int64(InitialPagesNumber) * PageSize); err != nil {
		f.Close()
		return nil, &Error{Code: CodeTruncateFail, Err: fmt.Errorf("truncate %q to initial size: %w", path, err)}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, &Error{Code: CodeTruncateFail, Err: fmt.Errorf("fsync %q after truncate: %w", path, err)}
	}

	hbuf := NewPageBuffer()
	hp := WrapHeaderPage(hbuf)
	hp.SetMagicNumber(magicNumber)
	hp.SetNumberOfPages(InitialPagesNumber)
	hp.SetFreePageNumber(1)
	if err := writePageAt(f, PageHeader, hbuf); err != nil {
		f.Close()
		return nil, err
	}

	if err := linkFreeChain(f, 1, InitialPagesNumber); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// linkFreeChain writes free pages [from, to) as a singly-linked chain,
// each pointing at the next, with the last page terminating at
// PageEOFree.
func linkFreeChain(f *os.File, from, to PageNumber) error {
	fbuf := NewPageBuffer()
	fp := WrapFreePage(fbuf)
	for i := from; i < to-1; i++ {
		fp.SetNextFreePageNumber(i + 1)
		if err := writePageAt(f, i, fbuf); err != nil {
			return err
		}
	}
	fp.SetNextFreePageNumber(PageEOFree)
	return writePageAt(f, to-1, fbuf)
}

func readPageAt(f *os.File, pn PageNumber, dest []byte) error {
	if _, err := f.ReadAt(dest, int64(pn)*PageSize); err != nil {
		return fmt.Errorf("read page %d: %w", pn, err)
	}
	return nil
}

// writePageAt writes src at pn and fsyncs: every disk-layer write is
// durable on return.
func writePageAt(f *os.File, pn PageNumber, src []byte) error {
	if _, err := f.WriteAt(src, int64(pn)*PageSize); err != nil {
		return fmt.Errorf("write page %d: %w", pn, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync after write page %d: %w", pn, err)
	}
	return nil
}

func (d *DiskManager) file(tid TableID) (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tid < 0 || int(tid) >= len(d.files) || d.files[tid] == nil {
		return nil, fmt.Errorf("unknown table id %d", tid)
	}
	return d.files[tid], nil
}

// ReadPage copies PageSize bytes from pn into dest. No caching; every call
// is a positional read.
func (d *DiskManager) ReadPage(tid TableID, pn PageNumber, dest []byte) error {
	f, err := d.file(tid)
	if err != nil {
		return err
	}
	return readPageAt(f, pn, dest[:PageSize])
}

// WritePage copies PageSize bytes from src into pn and fsyncs before
// returning.
func (d *DiskManager) WritePage(tid TableID, pn PageNumber, src []byte) error {
	f, err := d.file(tid)
	if err != nil {
		return err
	}
	return writePageAt(f, pn, src[:PageSize])
}

// GrowFile truncates the table's file to newPageCount pages and fsyncs.
func (d *DiskManager) GrowFile(tid TableID, newPageCount PageNumber) error {
	f, err := d.file(tid)
	if err != nil {
		return err
	}
	if err := f.Truncate(int64(newPageCount) * PageSize); err != nil {
		return fmt.Errorf("grow table %d to %d pages: %w", tid, newPageCount, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync table %d after growth: %w", tid, err)
	}
	return nil
}

// AllocPage pops a page off the on-disk free list, growing the file by
// doubling its page count first if the list is empty. Returns PageInvalid
// if the header can't be read/written or growth fails.
func (d *DiskManager) AllocPage(tid TableID) PageNumber {
	f, err := d.file(tid)
	if err != nil {
		return PageInvalid
	}

	hbuf := NewPageBuffer()
	if err := readPageAt(f, PageHeader, hbuf); err != nil {
		return PageInvalid
	}
	hp := WrapHeaderPage(hbuf)

	freePN := hp.FreePageNumber()
	if freePN == PageEOFree {
		old := hp.NumberOfPages()
		grown := old * 2
		if err := d.GrowFile(tid, grown); err != nil {
			return PageInvalid
		}
		if err := linkFreeChain(f, old, grown); err != nil {
			return PageInvalid
		}
		hp.SetNumberOfPages(grown)
		freePN = old
		hp.SetFreePageNumber(freePN)
	}

	fbuf := NewPageBuffer()
	if err := readPageAt(f, freePN, fbuf); err != nil {
		return PageInvalid
	}
	hp.SetFreePageNumber(WrapFreePage(fbuf).NextFreePageNumber())
	if err := writePageAt(f, PageHeader, hbuf); err != nil {
		return PageInvalid
	}

	return freePN
}

// FreePage pushes pn onto the head of the on-disk free list.
func (d *DiskManager) FreePage(tid TableID, pn PageNumber) error {
	f, err := d.file(tid)
	if err != nil {
		return err
	}

	hbuf := NewPageBuffer()
	if err := readPageAt(f, PageHeader, hbuf); err != nil {
		return err
	}
	hp := WrapHeaderPage(hbuf)
	oldHead := hp.FreePageNumber()
	hp.SetFreePageNumber(pn)
	if err := writePageAt(f, PageHeader, hbuf); err != nil {
		return err
	}

	fbuf := NewPageBuffer()
	WrapFreePage(fbuf).SetNextFreePageNumber(oldHead)
	return writePageAt(f, pn, fbuf)
}

// Close releases every open file handle. Safe to call once after the
// Buffer Layer (if any) has flushed and shut down.
func (d *DiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for _, f := range d.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
