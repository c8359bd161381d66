// Package main is the entry point for the mutafix CLI.
package main

import "mutafix.dev/pkg/mutafix/cmd"

func main() {
	cmd.Execute()
}
