package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/platinummonkey/projecthub/pkg/identity"
)

func newTokenCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "token",
		Description: "Issue or revoke API tokens",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("token", flag.ContinueOnError),
		out:         out,
	}
	cmd.Subcommands["create"] = newTokenCreateCommand(out)
	cmd.Subcommands["revoke"] = newTokenRevokeCommand(out)
	return cmd
}

func newTokenCreateCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "create",
		Description: "Create an API token for a user and print it",
		Flags:       flag.NewFlagSet("token create", flag.ContinueOnError),
		out:         out,
	}
	cmd.Flags.SetOutput(out)
	cmd.Flags.String("config", "", "Path to a YAML configuration file")
	cmd.Flags.Int64("user-id", 0, "User the token authenticates as")
	cmd.Flags.String("name", "", "Label for the token")
	cmd.Run = func(args []string) error { return runTokenCreate(cmd, args) }
	return cmd
}

func runTokenCreate(cmd *Command, args []string) error {
	if err := cmd.Flags.Parse(args); err != nil {
		return ignoreHelp(err)
	}

	userID, err := strconv.ParseInt(cmd.Flags.Lookup("user-id").Value.String(), 10, 64)
	if err != nil || userID <= 0 {
		return errors.New("user-id is required")
	}
	name := cmd.Flags.Lookup("name").Value.String()
	if name == "" {
		return errors.New("name is required")
	}

	cfg, err := loadConfig(cmd.Flags)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, _, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	token, err := identity.NewTokenStore(db).CreateToken(ctx, userID, name)
	if err != nil {
		return err
	}

	// The plaintext is unrecoverable once this command exits
	fmt.Fprintln(cmd.output(), token)
	return nil
}

func newTokenRevokeCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "revoke",
		Description: "Revoke an API token",
		Flags:       flag.NewFlagSet("token revoke", flag.ContinueOnError),
		out:         out,
	}
	cmd.Flags.SetOutput(out)
	cmd.Flags.String("config", "", "Path to a YAML configuration file")
	cmd.Flags.String("token", "", "Token to revoke")
	cmd.Run = func(args []string) error { return runTokenRevoke(cmd, args) }
	return cmd
}

func runTokenRevoke(cmd *Command, args []string) error {
	if err := cmd.Flags.Parse(args); err != nil {
		return ignoreHelp(err)
	}

	token := cmd.Flags.Lookup("token").Value.String()
	if token == "" {
		return errors.New("token is required")
	}

	cfg, err := loadConfig(cmd.Flags)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, _, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := identity.NewTokenStore(db).RevokeToken(ctx, token); err != nil {
		return err
	}
	fmt.Fprintln(cmd.output(), "Token revoked")
	return nil
}
