// openfile holds a file open until its stdin is closed.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	path := os.Args[1]
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Println("ready")
	io.Copy(io.Discard, os.Stdin)
}
