package keys

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xtruelegend/keymint/api"
	"github.com/xtruelegend/keymint/cmd/util"
	"github.com/xtruelegend/keymint/lib/config"
)

var (
	// KeyCommands represents the operator command group
	KeyCommands = &cobra.Command{
		Use:   "keys",
		Short: "Operate on issued license keys via a running server",
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(config.Init)

	// Add common client flags to the keys command
	key := "server"
	KeyCommands.PersistentFlags().String(key, "http://localhost:3000", util.WrapString("Base URL of the keymint server"))

	key = "token"
	KeyCommands.PersistentFlags().String(key, "", util.WrapString("Operator token. Defaults to today's token derived from the operator secret"))

	key = "timeout"
	KeyCommands.PersistentFlags().Int(key, 10, util.WrapString("The timeout in seconds of the client"))

	// Add subcommands
	KeyCommands.AddCommand(tokenCmd)
	KeyCommands.AddCommand(listCmd)
	KeyCommands.AddCommand(issueCmd)
	KeyCommands.AddCommand(deactivateCmd)
	KeyCommands.AddCommand(rotateCmd)
	KeyCommands.AddCommand(reportCmd)

	KeyCommands.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return util.BindCommandFlags(cmd)
	}
}

// operatorToken returns the token to present: the explicit flag if set,
// otherwise today's rolling token derived from the configured secret.
func operatorToken() (string, error) {
	if token := viper.GetString("token"); token != "" {
		return token, nil
	}
	secret := viper.GetString("operator-secret")
	if secret == "" {
		return "", fmt.Errorf("no operator token given and no operator secret configured")
	}
	return api.TokenFor(secret, time.Now()), nil
}

// call sends a request to the operator api and pretty-prints the JSON
// response
func call(method, path string, body interface{}) error {
	token, err := operatorToken()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, viper.GetString("server")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Operator-Token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: time.Duration(viper.GetInt("timeout")) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		raw = pretty.Bytes()
	}
	fmt.Println(string(raw))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}
