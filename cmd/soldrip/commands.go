package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/itchyny/gojq"
	"github.com/soldrip/soldrip/client"
	"github.com/urfave/cli/v2"
)

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Value:   "http://localhost:8080",
		Usage:   "HTTP server URL",
		EnvVars: []string{"SOLDRIP_SERVER_URL"},
	}
}

func networkFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "network",
		Aliases: []string{"n"},
		Value:   "devnet",
		Usage:   "Target network: devnet or testnet",
	}
}

// newClient builds the HTTP client shared by all commands.
func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(c.String("server"), nil, logger)
}

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Request an airdrop to a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			serverFlag(),
			networkFlag(),
			&cli.Float64Flag{
				Name:    "amount",
				Aliases: []string{"a"},
				Value:   1,
				Usage:   "Amount of SOL to request",
			},
			&cli.StringFlag{
				Name:  "captcha-token",
				Usage: "CAPTCHA proof token, if the server requires one",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output result as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			network := c.String("network")

			ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
			defer cancel()

			result, err := newClient(c).RequestAirdrop(ctx, client.AirdropRequest{
				Address:      address,
				Network:      network,
				Amount:       c.Float64("amount"),
				CaptchaToken: c.String("captcha-token"),
			})
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.RetryAfterSeconds > 0 {
					return fmt.Errorf("%s (retry in %s)", apiErr.Message, time.Duration(apiErr.RetryAfterSeconds)*time.Second)
				}
				return err
			}

			if c.Bool("json") {
				return printJSON(map[string]interface{}{
					"message":   result.Message,
					"signature": result.Signature,
					"amount":    result.Amount,
					"explorer":  explorerURL(result.Signature, network),
				})
			}

			fmt.Println(result.Message)
			fmt.Printf("Signature: %s\n", result.Signature)
			fmt.Printf("Explorer:  %s\n", explorerURL(result.Signature, network))
			return nil
		},
	}
}

func txListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recent faucet transactions",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of transactions to return",
			},
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq expression applied to each transaction; only matches are shown (repeatable)",
			},
		},
		Action: func(c *cli.Context) error {
			filters, err := compileFilters(c.StringSlice("filter"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()

			txs, err := newClient(c).Transactions(ctx, c.Int("limit"))
			if err != nil {
				return err
			}

			matched := make([]client.Transaction, 0, len(txs))
			for _, tx := range txs {
				ok, err := matchesFilters(tx, filters)
				if err != nil {
					return err
				}
				if ok {
					matched = append(matched, tx)
				}
			}

			return printJSON(matched)
		},
	}
}

func txClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Clear the faucet transaction ledger",
		Flags: []cli.Flag{serverFlag()},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()

			if err := newClient(c).ClearTransactions(ctx); err != nil {
				return err
			}
			fmt.Println("Transaction ledger cleared")
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show network health as seen by the faucet",
		Flags: []cli.Flag{serverFlag(), networkFlag()},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()

			status, err := newClient(c).Status(ctx, c.String("network"))
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
}

func allowanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "allowance",
		Usage:     "Show what a wallet may still receive in the current window",
		ArgsUsage: "WALLET_ADDRESS",
		Flags:     []cli.Flag{serverFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()

			allowance, err := newClient(c).Allowance(ctx, c.Args().Get(0))
			if err != nil {
				return err
			}
			return printJSON(allowance)
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show a wallet's SOL balance on a network",
		ArgsUsage: "WALLET_ADDRESS",
		Flags:     []cli.Flag{serverFlag(), networkFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()

			balance, err := newClient(c).Balance(ctx, c.Args().Get(0), c.String("network"))
			if err != nil {
				return err
			}
			return printJSON(balance)
		},
	}
}

// explorerURL builds the Solana explorer link for a transaction signature.
func explorerURL(signature, network string) string {
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", signature, network)
}

// compileFilters parses and compiles jq expressions.
func compileFilters(exprs []string) ([]*gojq.Code, error) {
	codes := make([]*gojq.Code, len(exprs))
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		codes[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return codes, nil
}

// matchesFilters reports whether a transaction passes every compiled filter.
// The transaction is round-tripped through JSON so filters see the wire shape.
func matchesFilters(tx client.Transaction, filters []*gojq.Code) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	raw, err := json.Marshal(tx)
	if err != nil {
		return false, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, err
	}

	for _, code := range filters {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := v.(error); isErr {
			return false, fmt.Errorf("jq filter error: %w", err)
		}
		if !isTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// isTruthy follows jq semantics: false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case nil:
		return false
	default:
		return true
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
