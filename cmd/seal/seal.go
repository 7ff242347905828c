package seal

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stokaro/ddldiff/cmd/internal/cliapp"
	"github.com/stokaro/ddldiff/config"
)

// NewSealCommand creates the seal command.
func NewSealCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seal [password]",
		Short: "Seal a password for use in a connection profile",
		Long: `Encrypt a password with the configured secret key (DDLDIFF_SECRET_KEY or
secret_key in the settings file). The printed value can be used as the password of a
connection profile. Without an argument the password is read from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := cliapp.FromContext(cmd.Context())

			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("error reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fmt.Errorf("empty password")
			}

			sealed, err := config.SealSecret(password, app.Settings.SecretKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}
