// Package main is the entry point for the msp command.
package main

import "msp-toolkit/cmd/msp/cmd"

func main() {
	cmd.Execute()
}
