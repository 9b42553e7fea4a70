//go:build unix

package handlers

import "syscall"

func applySecureUmask() func() {
	old := syscall.Umask(0o077)
	return func() { syscall.Umask(old) }
}
