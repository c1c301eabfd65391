package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/gateway"
	"github.com/soyeahso/whatsapp-relay/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show relay status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "whatsapp-relay %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:    %s\n", paths.Config)
			fmt.Fprintf(out, "Data:      %s\n", paths.Data)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:    error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Provider:  api=%s account=%s token=%s timeout=%s\n",
				cfg.Provider.APIBaseURL,
				maskSecret(cfg.Provider.AccountSID),
				maskSecret(cfg.Provider.AuthToken),
				cfg.Provider.Timeout())
			fmt.Fprintf(out, "Webhook:   port=%d bind=%s path=%s signature=%v rejectMismatch=%v\n",
				cfg.Webhook.Port, cfg.Webhook.Bind, cfg.Webhook.Path,
				cfg.Webhook.ValidateSignature, cfg.Webhook.RejectsMismatchedAccount())
			fmt.Fprintf(out, "Directory: store=%s language=%s\n", cfg.Directory.Store, cfg.Directory.DefaultLanguage)
			fmt.Fprintf(out, "Routing:   handler=%s\n", cfg.Routing.Handler)

			if err := config.RequireCredentials(&cfg); err != nil {
				fmt.Fprintf(out, "\nCredentials: %v\n", err)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			fmt.Fprintln(out)
			st, err := fetchStatus(fmt.Sprintf("http://127.0.0.1:%d/status", cfg.Webhook.Port))
			if err != nil {
				fmt.Fprintln(out, "Relay:     not running")
				return nil
			}
			fmt.Fprintf(out, "Relay:     running (version %s, up %s)\n", st.Version, st.Uptime)
			if st.Channel != nil {
				fmt.Fprintf(out, "Channel:   %s delivered=%d failed=%d\n",
					st.Channel.ChannelID, st.Channel.Delivered, st.Channel.Failed)
				if st.Channel.LastError != "" {
					fmt.Fprintf(out, "Last error: %s\n", st.Channel.LastError)
				}
			}
			if st.Sessions != nil {
				fmt.Fprintf(out, "Sessions:  %d\n", *st.Sessions)
			}
			return nil
		},
	}

	return cmd
}

// fetchStatus queries a running relay's status endpoint.
func fetchStatus(url string) (*gateway.StatusResponse, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, body)
	}

	var st gateway.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &st, nil
}

// maskSecret shows only the last four characters of a credential.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "(unset)"
	case len(s) <= 4:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
