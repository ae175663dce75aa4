// Command ledger-adduser registers a user with a default account and prints a
// bearer token for it. Intended for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"ledger/internal/auth"
	"ledger/internal/cli"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ledger-adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "email of the new user (required)")
	name := fs.String("name", "", "display name")
	balance := fs.String("balance", "0", "opening balance of the default account")
	ttl := fs.Duration("ttl", 24*time.Hour, "lifetime of the issued token")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *email == "" {
		fmt.Fprintln(stderr, "ledger-adduser: -email is required")
		fs.Usage()
		return 2
	}

	opening := core.Money{}
	if *balance != "" && *balance != "0" {
		m, err := core.ParseAmount(*balance)
		if err != nil {
			fmt.Fprintf(stderr, "ledger-adduser: invalid -balance %q: %v\n", *balance, err)
			return 2
		}
		opening = m
	}

	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(stderr, "ledger-adduser:", err)
		return 1
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(stderr, "ledger-adduser:", err)
		return 1
	}
	logger := applog.New(applog.Config{Level: applog.ParseLevel("error"), Output: stderr})

	ctx := context.Background()
	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, "ledger-adduser:", err)
		return 1
	}
	defer res.Cleanup()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		fmt.Fprintln(stderr, "ledger-adduser:", err)
		return 1
	}

	svc := services.NewLedgerService(res.Backend.Store, res.Backend.Publisher, cfg.DisplayCurrency).WithLogger(logger)
	reg, err := svc.RegisterUser(ctx, services.RegisterInput{Email: *email, Name: *name, InitialBalance: opening})
	if err != nil {
		var e *core.Error
		if errors.As(err, &e) && e.Kind == core.KindValidation {
			fmt.Fprintln(stderr, "ledger-adduser:", e.Detail)
			return 2
		}
		fmt.Fprintln(stderr, "ledger-adduser:", err)
		return 1
	}

	token, err := issuer.Sign(reg.User.ID, *ttl)
	if err != nil {
		fmt.Fprintln(stderr, "ledger-adduser:", err)
		return 1
	}

	fmt.Fprintf(stdout, "user_id=%s\naccount_id=%s\nbalance=%s\ntoken=%s\n",
		reg.User.ID, reg.Account.ID, reg.Account.CurrentBalance.Display(cfg.DisplayCurrency), token)
	return 0
}
