package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/client"
)

type LoginOptions struct {
	ConfigFilePath string
}

func DefaultLoginOptions() *LoginOptions {
	return &LoginOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
	}
}

func NewCmdLogin() *cobra.Command {
	o := DefaultLoginOptions()
	cmd := &cobra.Command{
		Use:   "login SERVER_URL",
		Short: "Store the server address in the client config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Run(cmd.Context(), args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server %s saved to %s\n", args[0], o.ConfigFilePath)
			return nil
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *LoginOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client config file.")
}

func (o *LoginOptions) Run(ctx context.Context, args []string) error {
	cfg := client.NewDefault()
	cfg.Service.Server = args[0]
	if err := cfg.Validate(); err != nil {
		return err
	}
	return client.WriteConfig(o.ConfigFilePath, args[0])
}
