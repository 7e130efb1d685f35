package main

import "github.com/sheetwise/sheetwise/cmd"

func main() {
	cmd.Execute()
}
