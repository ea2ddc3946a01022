package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/client"
)

type GlobalOptions struct {
	ServerUrl      string
	ConfigFilePath string
	Timeout        time.Duration

	out io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
		Timeout:        10 * time.Minute,
		out:            os.Stdout,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the server. Overrides the config file.")
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client config file.")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Give up after this long.")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	o.out = cmd.OutOrStdout()
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Client builds the api client from --server-url or, when unset, from the config file.
func (o *GlobalOptions) Client() (*client.APIClient, error) {
	cfg := client.NewDefault()
	if o.ServerUrl != "" {
		cfg.Service.Server = o.ServerUrl
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if cfg, err = client.ParseConfigFile(o.ConfigFilePath); err != nil {
			return nil, err
		}
	}
	return client.NewFromConfig(cfg)
}

func (o *GlobalOptions) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, o.Timeout)
}
