// Package main is the entry point for goexec, a tool that compiles and runs
// Go snippets, files and URLs, and hosts an interactive Go session.
package main

import (
	"goexec/cli/cmd"
)

func main() {
	cmd.Execute()
}
