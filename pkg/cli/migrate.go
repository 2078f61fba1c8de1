package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/platinummonkey/projecthub/pkg/config"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

func newMigrateCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Apply pending database migrations",
		Flags:       flag.NewFlagSet("migrate", flag.ContinueOnError),
		out:         out,
	}
	cmd.Flags.SetOutput(out)
	cmd.Flags.String("config", "", "Path to a YAML configuration file")
	cmd.Run = func(args []string) error { return runMigrate(cmd, args) }
	return cmd
}

func runMigrate(cmd *Command, args []string) error {
	if err := cmd.Flags.Parse(args); err != nil {
		return ignoreHelp(err)
	}
	cfg, err := loadConfig(cmd.Flags)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, dialect, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := projects.Migrate(ctx, db, dialect); err != nil {
		return err
	}
	fmt.Fprintf(cmd.output(), "Applied %d migrations\n", len(projects.GetMigrations()))
	return nil
}

// loadConfig honours an explicit -config flag before reading the environment
func loadConfig(flags *flag.FlagSet) (*config.Config, error) {
	if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
		return config.LoadConfigFile(f.Value.String())
	}
	return config.LoadConfig()
}
