package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Command represents a CLI command. A command either runs or dispatches to
// one of its subcommands.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	out io.Writer
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	return newRootCommand(os.Stdout)
}

func newRootCommand(out io.Writer) *Command {
	root := &Command{
		Name:        "projecthub",
		Description: "ProjectHub - shared projects, members, documents and comments",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("projecthub", flag.ExitOnError),
		out:         out,
	}

	root.Subcommands["serve"] = newServeCommand(out)
	root.Subcommands["migrate"] = newMigrateCommand(out)
	root.Subcommands["token"] = newTokenCommand(out)

	return root
}

// Execute runs the command with args, which exclude the program name
func (c *Command) Execute(args []string) error {
	if len(args) == 0 {
		if c.Run != nil {
			return c.Run(nil)
		}
		return c.usage()
	}

	if isHelpFlag(args[0]) && len(c.Subcommands) > 0 {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Execute(args[1:])
	}

	if c.Run != nil {
		return c.Run(args)
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	out := c.output()
	fmt.Fprintf(out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

func (c *Command) output() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

func isHelpFlag(arg string) bool {
	return strings.EqualFold(arg, "-h") || strings.EqualFold(arg, "--help") || strings.EqualFold(arg, "help")
}

// ignoreHelp treats -h on a leaf command as success; the flag set has
// already printed its defaults.
func ignoreHelp(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}
