//go:build !unix

package handlers

func applySecureUmask() func() { return nil }
