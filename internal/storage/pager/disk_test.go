package pager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newDiskTable(t *testing.T) (*DiskManager, TableID) {
	t.Helper()
	d := NewDiskManager()
	path := filepath.Join(t.TempDir(), "data.page")
	tid, err := d.OpenDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, tid
}

func TestDiskManager_CreateFormatsHeaderAndFreeChain(t *testing.T) {
	d, tid := newDiskTable(t)

	hbuf := NewPageBuffer()
	require.NoError(t, d.ReadPage(tid, PageHeader, hbuf))
	hp := WrapHeaderPage(hbuf)
	require.Equal(t, magicNumber, hp.MagicNumber())
	require.Equal(t, InitialPagesNumber, hp.NumberOfPages())
	require.Equal(t, PageNumber(1), hp.FreePageNumber())

	for pn := PageNumber(1); pn < InitialPagesNumber-1; pn++ {
		fbuf := NewPageBuffer()
		require.NoError(t, d.ReadPage(tid, pn, fbuf))
		require.Equal(t, pn+1, WrapFreePage(fbuf).NextFreePageNumber())
	}

	lastBuf := NewPageBuffer()
	require.NoError(t, d.ReadPage(tid, InitialPagesNumber-1, lastBuf))
	require.Equal(t, PageEOFree, WrapFreePage(lastBuf).NextFreePageNumber())
}

func TestDiskManager_OpenExistingValidatesMagic(t *testing.T) {
	d := NewDiskManager()
	path := filepath.Join(t.TempDir(), "data.page")
	tid, err := d.OpenDatabase(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d2 := NewDiskManager()
	tid2, err := d2.OpenDatabase(path)
	require.NoError(t, err)
	require.NotEqual(t, TableIDInvalid, tid2)
	_ = tid
	require.NoError(t, d2.Close())
}

func TestDiskManager_OpenExistingRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.page")
	d0 := NewDiskManager()
	tid, err := d0.OpenDatabase(path)
	require.NoError(t, err)
	bad := NewPageBuffer()
	require.NoError(t, d0.WritePage(tid, PageHeader, bad))
	require.NoError(t, d0.Close())

	d1 := NewDiskManager()
	_, err = d1.OpenDatabase(path)
	require.Error(t, err)
	var pagerErr *Error
	require.ErrorAs(t, err, &pagerErr)
	require.Equal(t, CodeValidateFail, pagerErr.Code)
}

func TestDiskManager_AllocFreeRoundTrip(t *testing.T) {
	d, tid := newDiskTable(t)

	pn := d.AllocPage(tid)
	require.NotEqual(t, PageInvalid, pn)

	buf := NewPageBuffer()
	WrapFreePage(buf).SetNextFreePageNumber(0xDEAD)
	require.NoError(t, d.WritePage(tid, pn, buf))

	require.NoError(t, d.FreePage(tid, pn))

	pn2 := d.AllocPage(tid)
	require.Equal(t, pn, pn2, "freed page should be reused by the next alloc (LIFO free list)")
}

func TestDiskManager_AllocExhaustsAndDoublesFile(t *testing.T) {
	d, tid := newDiskTable(t)

	seen := make(map[PageNumber]bool)
	for i := 0; i < int(InitialPagesNumber)-1; i++ {
		pn := d.AllocPage(tid)
		require.NotEqual(t, PageInvalid, pn)
		require.False(t, seen[pn], "alloc must never hand out the same page twice without an intervening free")
		seen[pn] = true
	}

	grownPN := d.AllocPage(tid)
	require.NotEqual(t, PageInvalid, grownPN, "alloc must grow the file once the initial free list is exhausted")

	hbuf := NewPageBuffer()
	require.NoError(t, d.ReadPage(tid, PageHeader, hbuf))
	require.Equal(t, InitialPagesNumber*2, WrapHeaderPage(hbuf).NumberOfPages())
}

func TestDiskManager_UnknownTableID(t *testing.T) {
	d := NewDiskManager()
	buf := NewPageBuffer()
	require.Error(t, d.ReadPage(99, PageHeader, buf))
	require.Error(t, d.WritePage(99, PageHeader, buf))
}
