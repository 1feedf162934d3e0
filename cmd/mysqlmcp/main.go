package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigPath is where serve, doctor, and configure look for the
// config file unless the user points them elsewhere.
func defaultConfigPath() string {
	return filepath.Join(".mysqlmcp", "config.json")
}

var commands = map[string]func() error{
	"serve":     runServe,
	"doctor":    runDoctor,
	"configure": runConfigure,
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	name := args[0]
	if name == "--help" || name == "-h" || name == "help" {
		printUsage()
		return
	}

	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(1)
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

const usage = `mysqlmcp - read-only MySQL MCP server

Usage:
  mysqlmcp serve      Start the MCP server
  mysqlmcp doctor     Check configuration and connectivity
  mysqlmcp configure  Interactive configuration wizard
  mysqlmcp --help     Show this help message
`

func printUsage() {
	fmt.Print(usage)
}
