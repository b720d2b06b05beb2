//go:build windows

package keystore

import "syscall"

// hideFile sets the hidden attribute, the Windows counterpart of a dot-dir.
func hideFile(filename string) {
	filenamePtr, err := syscall.UTF16PtrFromString(filename)
	if err == nil {
		_ = syscall.SetFileAttributes(filenamePtr, syscall.FILE_ATTRIBUTE_HIDDEN)
	}
}
