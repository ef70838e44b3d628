package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "soldrip",
		Usage: "Solana test-network faucet CLI",
		Description: `A command-line tool for requesting airdrops from the soldrip faucet
and inspecting faucet state.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			requestCommand(),
			{
				Name:  "tx",
				Usage: "Transaction ledger commands",
				Subcommands: []*cli.Command{
					txListCommand(),
					txClearCommand(),
				},
			},
			statusCommand(),
			allowanceCommand(),
			balanceCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
