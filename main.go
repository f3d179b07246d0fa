// main.go
//
// Minimal entry point that delegates CLI handling to the Cobra root command in cmd/root.go

package main

import (
	"github.com/vtisweden/matsim-projects-sub003/cmd"
)

func main() {
	cmd.Execute()
}
