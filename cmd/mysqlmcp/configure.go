package main

import (
	"flag"
	"os"

	"github.com/cosmohaven/mysql-mcp/internal/configure"
)

func runConfigure() error {
	fs := flag.NewFlagSet("configure", flag.ExitOnError)
	path := fs.String("config", defaultConfigPath(), "Config file to create or edit")
	fs.Parse(os.Args[2:])

	return configure.Run(*path)
}
