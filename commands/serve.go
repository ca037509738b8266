package commands

import (
	"github.com/chrisvdg/linkswap/config"
	"github.com/chrisvdg/linkswap/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verification service answering existence checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := server.New(serverConfig(cmd.Flags(), c.conf))
			if err != nil {
				return err
			}

			return s.ListenAndServe(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringP("listenaddr", "l", ":8080", "http listen address")
	flags.StringP("tlsaddr", "t", ":8443", "https listen address")
	flags.StringP("tlskey", "k", "", "TLS private key file path")
	flags.StringP("tlscert", "c", "", "TLS certificate file path")
	flags.BoolP("tlsonly", "s", false, "Only serve TLS")

	return cmd
}

func serverConfig(flags *pflag.FlagSet, conf *config.Config) *server.Config {
	listenAddr, _ := flags.GetString("listenaddr")
	tlsListenAddr, _ := flags.GetString("tlsaddr")
	tlsKey, _ := flags.GetString("tlskey")
	tlsCert, _ := flags.GetString("tlscert")
	tlsOnly, _ := flags.GetBool("tlsonly")
	verbose, _ := flags.GetBool("verbose")

	return &server.Config{
		ListenAddr:    listenAddr,
		TLSListenAddr: tlsListenAddr,
		TLSOnly:       tlsOnly,
		TLS: &server.TLSConfig{
			KeyFile:  tlsKey,
			CertFile: tlsCert,
		},
		Verbose:  verbose,
		Pipeline: conf,
	}
}
