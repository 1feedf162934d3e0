package main

import (
	"fmt"
	"io"

	"golang.org/x/term"
)

// isTTY reports whether the file descriptor is attached to a terminal.
func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// bannerLines is the "mysqlmcp" ASCII art shown by serve and doctor.
var bannerLines = []string{
	`                           _                       `,
	`  _ __ ___  _   _ ___  __ _| |_ __ ___   ___ _ __   `,
	` | '_ ' _ \| | | / __|/ _' | | '_ ' _ \ / __| '_ \  `,
	` | | | | | | |_| \__ \ (_| | | | | | | | (__| |_) | `,
	` |_| |_| |_|\__, |___/\__, |_|_| |_| |_|\___| .__/  `,
	`            |___/        |_|                 |_|    `,
	`                                                    `,
}

// bannerColors is the per-line ANSI gradient, cyan through magenta.
var bannerColors = []string{
	"\033[1;36m",
	"\033[1;36m",
	"\033[1;96m",
	"\033[1;34m",
	"\033[1;35m",
	"\033[1;95m",
	"\033[0m",
}

// printBanner writes the startup banner, in ANSI color when color is set.
func printBanner(w io.Writer, color bool) {
	for i, line := range bannerLines {
		if !color {
			fmt.Fprintln(w, line)
			continue
		}
		fmt.Fprintf(w, "%s%s\033[0m\n", bannerColors[i%len(bannerColors)], line)
	}
}
