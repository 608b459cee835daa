// this code is adapted from https://github.com/ryogrid/SamehadaDB (storage/disk/testing.go)

package disk

import (
	"os"
)

// TestDiskManager wraps a FileDiskManager rooted at a throwaway temp file
// and removes both the db and log file on ShutDown, so tests never leak
// fixtures onto disk.
type TestDiskManager struct {
	*FileDiskManager
	path string
}

func NewTestDiskManager() *TestDiskManager {
	f, err := os.CreateTemp("", "pagestore-*.db")
	if err != nil {
		panic(err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	return &TestDiskManager{FileDiskManager: NewFileDiskManager(path), path: path}
}

func (d *TestDiskManager) ShutDown() {
	d.FileDiskManager.ShutDown()
	d.FileDiskManager.RemoveFiles()
}
