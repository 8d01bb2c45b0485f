package main

import "github.com/foldingtext/ftbundle/cmd"

func main() {
	cmd.Execute()
}
