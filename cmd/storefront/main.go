// Command storefront shops the storefront cart from a terminal. Each
// invocation starts the cart synchronization engine for the current
// identity, applies one operation and waits for the server to catch up.
//
// Usage:
//
//	storefront products
//	storefront cart add lipo-4s 2
//	storefront cart update lipo-4s 1
//	storefront cart show --json
//	storefront --token "$TOKEN" cart sync
//	storefront token issue pilot-1
package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
