package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/infrastructure/pushapi"
	"terangahub.app/push/internal/subscriber"
)

// filePlatform is a device whose push subscription was exported to a JSON file,
// as produced by PushSubscription.toJSON() in a browser.
type filePlatform struct {
	path     string
	existing bool
	assumeOK bool
	in       io.Reader
	out      io.Writer
}

func (p *filePlatform) Supported() bool { return true }

func (p *filePlatform) CurrentSubscription(context.Context) (*domain.Subscription, error) {
	if !p.existing {
		return nil, nil
	}
	return p.read()
}

func (p *filePlatform) RequestPermission(context.Context) (subscriber.Permission, error) {
	if p.assumeOK {
		return subscriber.PermissionGranted, nil
	}
	fmt.Fprint(p.out, "Allow TerangaHub to send notifications to this device? [y/N] ")
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return subscriber.PermissionDefault, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return subscriber.PermissionGranted, nil
	case "n", "no":
		return subscriber.PermissionDenied, nil
	}
	return subscriber.PermissionDefault, nil
}

func (p *filePlatform) Subscribe(context.Context, []byte) (*domain.Subscription, error) {
	return p.read()
}

func (p *filePlatform) read() (*domain.Subscription, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading subscription: %w", err)
	}
	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("parsing subscription %s: %w", p.path, err)
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return &sub, nil
}

func newSubscribeCmd() *cobra.Command {
	var (
		server    string
		token     string
		userID    string
		file      string
		publicKey string
		existing  bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Register a device subscription for a signed-in user",
		Long:  "Run the device registration flow against a subscription exported to a JSON file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--subscription is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client := pushapi.New(server, token)
			if publicKey == "" {
				key, err := client.PublicKey(ctx)
				if err != nil {
					return fmt.Errorf("fetching application server key: %w", err)
				}
				publicKey = key
			}

			platform := &filePlatform{
				path:     file,
				existing: existing,
				assumeOK: yes,
				in:       cmd.InOrStdin(),
				out:      cmd.ErrOrStderr(),
			}
			mgr, err := subscriber.New(platform, client, publicKey)
			if err != nil {
				return err
			}

			state, err := mgr.Run(ctx, userID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dimStyle.Render("state:"), titleStyle.Render(state.String()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Subscription stored for "+userID+"."))
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", envOr("PUSH_SERVER", defaultServer), "Push service base URL")
	cmd.Flags().StringVar(&token, "token", envOr("PUSH_TOKEN", ""), "The signed-in user's bearer token")
	cmd.Flags().StringVar(&userID, "user", "", "Signed-in user id")
	cmd.Flags().StringVar(&file, "subscription", "", "Path to the subscription JSON")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Application server key (fetched from the server when empty)")
	cmd.Flags().BoolVar(&existing, "existing", false, "Treat the file as the device's current subscription")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Grant notification permission without prompting")

	return cmd
}
