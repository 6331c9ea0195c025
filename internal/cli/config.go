package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openpim/catalog-bulk/internal/config"
)

type ConfigOptions struct {
	Output string
}

func NewCmdConfig() *cobra.Command {
	o := &ConfigOptions{Output: yamlFormat}
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration read from the environment, credentials masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("reading configuration: %w", err)
			}
			return o.Run(cmd.OutOrStdout(), cfg)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ConfigOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join([]string{jsonFormat, yamlFormat}, ", ")))
}

func (o *ConfigOptions) Run(w io.Writer, cfg *config.Config) error {
	if o.Output == tableFormat {
		return fmt.Errorf("output format must be one of %s, %s", jsonFormat, yamlFormat)
	}
	if err := validateOutput(o.Output); err != nil {
		return err
	}
	_, err := printStructured(w, o.Output, cfg.Redacted())
	return err
}
