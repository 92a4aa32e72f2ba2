package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"TailHedge/internal/cli"
)

func main() {
	app := &cli.App{Logger: zerolog.New(os.Stderr).With().Timestamp().Logger()}
	if err := cli.NewRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
