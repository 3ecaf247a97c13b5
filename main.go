// The main package for the unitscout executable.
package main

import (
	"github.com/unitscout/unitscout/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
