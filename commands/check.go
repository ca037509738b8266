package commands

import (
	"fmt"

	"github.com/chrisvdg/linkswap/checker"
	"github.com/chrisvdg/linkswap/pipeline"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <article-url>",
		Short: "Report whether the alternate site has the article of a source url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := pipeline.NewTranslator(c.conf)
			if err != nil {
				return err
			}
			candidate, ok := t.Translate(args[0])
			if !ok {
				return errors.Errorf("%q is not an absolute url", args[0])
			}

			direct, _ := cmd.Flags().GetBool("direct")
			var ch checker.Checker
			if direct {
				ch, _ = pipeline.NewVerifier(c.conf, nil)
			} else {
				ch = pipeline.NewProxy(c.conf, nil)
			}

			verdict := "missing"
			if ch.Exists(cmd.Context(), candidate) {
				verdict = "exists"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", candidate, verdict)
			return err
		},
	}
	cmd.Flags().Bool("direct", false, "Verify in process instead of asking the verification service")

	return cmd
}
