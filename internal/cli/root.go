package cli

import (
	"os"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatsapp-relay",
		Short: "whatsapp-relay: WhatsApp Business webhook relay",
		Long: "whatsapp-relay receives WhatsApp Business messages from the provider's webhook,\n" +
			"maps senders to sessions and posts replies back through the provider's Messages API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			log = logging.New(nil, resolveLogLevel(""))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.whatsapp-relay/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// resolveLogLevel picks the log level: flag, then environment, then the
// configured level, then info.
func resolveLogLevel(configured string) string {
	if logLevel != "" {
		return logLevel
	}
	if v := os.Getenv("WHATSAPP_RELAY_LOG_LEVEL"); v != "" {
		return v
	}
	if configured != "" {
		return configured
	}
	return "info"
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil && log != nil {
		log.Error().Err(err).Msg("command failed")
	}
	return err
}
