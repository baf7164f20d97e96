package blockdevice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HoodieCollin/dbexp-sub000/pkg/blockdevice"
	"github.com/stretchr/testify/require"
)

func TestNewBlockDeviceFromFileRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	require.NoError(t, err)
	defer f.Close()

	// Two adjacent regions of the same file, carved out independently
	// (the way pkg/store maps its meta header and pkg/block maps each
	// block's meta-plus-slots region) must not clobber one another,
	// and the file must grow to cover both without rounding to a
	// sector multiple.
	first, err := blockdevice.NewBlockDeviceFromFileRegion(f, 0, 16)
	require.NoError(t, err)
	defer first.Close()

	second, err := blockdevice.NewBlockDeviceFromFileRegion(f, 16, 32)
	require.NoError(t, err)
	defer second.Close()

	fileInfo, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(48), fileInfo.Size())

	_, err = first.WriteAt([]byte("first-region"), 0)
	require.NoError(t, err)
	_, err = second.WriteAt([]byte("second-region"), 0)
	require.NoError(t, err)

	require.Equal(t, []byte("first-region"), first.Bytes()[:12])
	require.Equal(t, []byte("second-region"), second.Bytes()[:13])
}

func TestNewAnonymousBlockDevice(t *testing.T) {
	dev, err := blockdevice.NewAnonymousBlockDevice(64)
	require.NoError(t, err)
	defer dev.Close()

	_, err = dev.WriteAt([]byte("anonymous"), 0)
	require.NoError(t, err)

	var b [9]byte
	n, err := dev.ReadAt(b[:], 0)
	require.Equal(t, 9, n)
	require.NoError(t, err)
	require.Equal(t, []byte("anonymous"), b[:])

	// Not backed by a file; flushing is a no-op rather than an error.
	require.NoError(t, dev.Sync())
}
