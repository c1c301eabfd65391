package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/whatsapp-relay/internal/address"
	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
	"github.com/soyeahso/whatsapp-relay/internal/whatsapp"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one WhatsApp message through the provider API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !address.Valid(from) {
				return fmt.Errorf("--from must be a +<digits> number, got %q", from)
			}
			if !address.Valid(to) {
				return fmt.Errorf("--to must be a +<digits> number, got %q", to)
			}

			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if err := config.RequireCredentials(&cfg); err != nil {
				return err
			}

			log = logging.New(nil, resolveLogLevel(cfg.Logging.Level))
			sender := whatsapp.NewSender(cfg.Provider, nil, nil,
				log.Sub(whatsapp.ChannelID).Tagged(logging.AdapterTag))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			env := domain.OutboundEnvelope{
				Room:   from,
				UserID: to,
				Text:   strings.Join(args, " "),
			}
			if err := sender.Deliver(ctx, env); err != nil {
				if derr, ok := whatsapp.IsDeliveryError(err); ok && derr.Status != 0 {
					return fmt.Errorf("provider answered %d: %s", derr.Status, derr.Body)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", to)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "business number to send from (+<digits>)")
	cmd.Flags().StringVar(&to, "to", "", "recipient number (+<digits>)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}
