// Command pairctl pairs WhatsApp channel connections from a terminal.
//
// Usage:
//
//	pairctl pair --proxy 3 --name "Support line"
//	pairctl reconnect 42
//	pairctl proxies
//	pairctl connections --reconnectable
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
