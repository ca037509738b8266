// Package commands implements the linkswap command line interface.
package commands

import (
	"context"

	"github.com/chrisvdg/linkswap/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI represents the linkswap command line interface
type CLI struct {
	rootCmd *cobra.Command
	conf    *config.Config
}

// New creates the command tree
func New() *CLI {
	c := &CLI{}
	c.rootCmd = &cobra.Command{
		Use:               "linkswap",
		Short:             "Rewrite encyclopedia links to an alternate site when the article exists there",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringP("config", "f", "", "Path to a yaml configuration file")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.String("log-format", "text", "Log format, text or json")

	c.rootCmd.AddCommand(c.newServeCmd())
	c.rootCmd.AddCommand(c.newRewriteCmd())
	c.rootCmd.AddCommand(c.newCheckCmd())

	return c
}

// Execute runs the command selected by the arguments
func (c *CLI) Execute(ctx context.Context) error {
	return c.rootCmd.ExecuteContext(ctx)
}

// SetArgs sets the arguments of the root command, used for testing
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	format, _ := flags.GetString("log-format")
	switch format {
	case "text":
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", format)
	}

	path, _ := flags.GetString("config")
	conf, err := config.Load(path)
	if err != nil {
		return err
	}
	c.conf = conf

	return nil
}
