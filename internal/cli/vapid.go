package cli

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"terangahub.app/push/internal/infrastructure/webpush"
	"terangahub.app/push/internal/vapid"
)

func newVAPIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vapid",
		Short: "Manage the VAPID application server key pair",
	}
	cmd.AddCommand(newVAPIDGenerateCmd())
	cmd.AddCommand(newVAPIDInspectCmd())
	return cmd
}

type vapidYAML struct {
	VAPID struct {
		PublicKey  string `yaml:"public_key"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"vapid"`
}

func newVAPIDGenerateCmd() *cobra.Command {
	var (
		output string
		copyPK bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new VAPID key pair",
		Long:  "Generate a P-256 key pair. The public key goes to clients; the private key must stay on the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "env" && output != "yaml" {
				return fmt.Errorf("unknown output %q (valid: env, yaml)", output)
			}

			pub, priv, err := webpush.GenerateKeys()
			if err != nil {
				return fmt.Errorf("generating keys: %w", err)
			}

			out := cmd.OutOrStdout()
			switch output {
			case "env":
				fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
			case "yaml":
				var doc vapidYAML
				doc.VAPID.PublicKey = pub
				doc.VAPID.PrivateKey = priv
				b, err := yaml.Marshal(&doc)
				if err != nil {
					return fmt.Errorf("encoding yaml: %w", err)
				}
				_, _ = out.Write(b)
			}

			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut, warnStyle.Render("Keep VAPID_PRIVATE_KEY secret; never ship it to clients."))
			if copyPK {
				if err := clipboard.WriteAll(pub); err != nil {
					return fmt.Errorf("copying public key: %w", err)
				}
				fmt.Fprintln(errOut, okStyle.Render("Public key copied to clipboard."))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "env", "Output format (env, yaml)")
	cmd.Flags().BoolVar(&copyPK, "copy", false, "Copy the public key to the clipboard")

	return cmd
}

func newVAPIDInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <public-key>",
		Short: "Check that a public key decodes to an uncompressed P-256 point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := vapid.ParsePublicKey(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("valid application server key"))
			fmt.Fprintf(out, "%s %s\n", dimStyle.Render("normalized:"), vapid.EncodePublicKey(raw))
			fmt.Fprintf(out, "%s %d bytes\n", dimStyle.Render("length:"), len(raw))
			fmt.Fprintf(out, "%s %x\n", dimStyle.Render("x:"), raw[1:33])
			fmt.Fprintf(out, "%s %x\n", dimStyle.Render("y:"), raw[33:])
			return nil
		},
	}
}
