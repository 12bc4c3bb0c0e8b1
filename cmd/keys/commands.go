package keys

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xtruelegend/keymint/api"
)

var (
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Print today's operator token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("operator-secret")
			if secret == "" {
				return fmt.Errorf("no operator secret configured")
			}
			fmt.Println(api.TokenFor(secret, time.Now()))
			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all purchase records and revoked keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/admin/active-keys", nil)
		},
	}

	issueCmd = &cobra.Command{
		Use:   "issue [email]",
		Short: "Issue a complimentary key to an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/admin/send-key",
				map[string]string{"email": args[0]})
		},
	}

	deactivateCmd = &cobra.Command{
		Use:   "deactivate [key]",
		Short: "Revoke a key and issue its owner a replacement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			return call(http.MethodPost, "/api/admin/deactivate-key",
				map[string]string{"key": args[0], "email": email})
		},
	}

	rotateCmd = &cobra.Command{
		Use:   "rotate",
		Short: "Replace every issued key with a fresh pool key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/admin/rotate-keys", nil)
		},
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Mail the key report to the configured report address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/admin/send-key-report", nil)
		},
	}
)

func init() {
	deactivateCmd.Flags().String("email", "", "Owner address for keys that belong to no purchase record")
}
