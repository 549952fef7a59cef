package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/infrastructure/pushapi"
)

func newSendCmd() *cobra.Command {
	var (
		server string
		token  string
		userID string
		p      domain.Payload
		kind   string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one push notification through the dispatcher",
		Long:  "Invoke the dispatcher with a service-role token. Exactly one delivery is attempted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			if token == "" {
				return fmt.Errorf("--token (or PUSH_TOKEN) is required")
			}
			p.Type = domain.NotificationType(kind)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := pushapi.New(server, token).Send(ctx, userID, p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Push notification sent to "+userID+"."))
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", envOr("PUSH_SERVER", defaultServer), "Push service base URL")
	cmd.Flags().StringVar(&token, "token", envOr("PUSH_TOKEN", ""), "Service-role bearer token")
	cmd.Flags().StringVar(&userID, "user", "", "Recipient user id")
	cmd.Flags().StringVar(&p.Title, "title", "TerangaHub", "Notification title")
	cmd.Flags().StringVar(&p.Body, "body", "", "Notification body")
	cmd.Flags().StringVar(&kind, "type", string(domain.TypeSystem), "Notification type (comment, like, follow, message, system)")
	cmd.Flags().StringVar(&p.ReferenceID, "ref", "", "Id of the post, profile or conversation the notification points at")

	return cmd
}
