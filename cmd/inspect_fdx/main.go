// Inspect a nodelist index file (NODELIST.FDX, USERLIST.FDX or PHONE.FDX).
// Usage: go run ./cmd/inspect_fdx <path-to-.FDX>
// Example: go run ./cmd/inspect_fdx nodelists/sample/NODELIST.FDX
package main

import (
	"fmt"
	"os"

	fdx "NodelistDB/fdxtree"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index.FDX>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s nodelists/sample/NODELIST.FDX\n", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]
	if err := fdx.InspectIndexFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
