package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"tazzio/internal/cli"
	"tazzio/internal/log"
	"tazzio/internal/session"
	"tazzio/internal/store"
)

// openFunc opens the data store and returns it with its cleanup.
type openFunc func(ctx context.Context) (store.Auth, func() error, error)

func main() {
	cli.LoadEnvFile()
	open := func(ctx context.Context) (store.Auth, func() error, error) {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return nil, nil, err
		}
		// Quiet unless something goes wrong; stdout is for the prompt.
		logger := cli.SetupLogger("warn", os.Stderr)
		readCfg := *cfg
		readCfg.AMQPURL = ""
		be, err := cli.OpenBackend(ctx, &readCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return be.Remote, be.Cleanup, nil
	}
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, open); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, open openFunc) error {
	fs := flag.NewFlagSet("tazzio-adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Account email")
	name := fs.String("name", "", "Display name (optional)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(stdout, "Usage: tazzio-adduser -email <email> [-name <name>] [-password <password>]")
		fs.PrintDefaults()
		return errors.New("missing required flags: email")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	auth, cleanup, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open data store: %w", err)
	}
	if cleanup != nil {
		defer func() { _ = cleanup() }()
	}

	id, err := session.NewManager(auth, log.Discard()).SignUp(ctx, *email, password, *name)
	if err != nil {
		if session.KindOf(err) == session.KindEmailTaken {
			return fmt.Errorf("account %s already exists", *email)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Fprintf(stdout, "Account %s created successfully with ID %s\n", id.Email, id.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
