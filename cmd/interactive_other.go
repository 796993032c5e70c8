//go:build !windows

package main

// enableVT is a no-op outside Windows; terminals there interpret ANSI already.
func enableVT() {}
