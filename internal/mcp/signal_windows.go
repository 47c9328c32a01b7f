//go:build windows

package mcp

import (
	"os"
	"os/signal"
)

// notifySignals registers the signals that stop the server. Windows only
// delivers os.Interrupt.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
