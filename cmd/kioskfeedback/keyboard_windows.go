//go:build windows
// +build windows

package main

import (
	"os"
)

// listenForKeyboard reads keys from stdin. The console stays line-buffered
// on Windows, so each key needs Enter.
func listenForKeyboard(c *console) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 || buf[0] == '\r' || buf[0] == '\n' {
			continue
		}
		if c.handleKey(buf[0]) {
			return
		}
	}
}
