package main

import "github.com/goplus/unilib/cmd/unilib/internal"

func main() {
	internal.Execute()
}
