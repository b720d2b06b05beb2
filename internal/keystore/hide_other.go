//go:build !windows

package keystore

func hideFile(string) {}
