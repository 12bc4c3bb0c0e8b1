package serve

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdUtil "github.com/xtruelegend/keymint/cmd/util"
	"github.com/xtruelegend/keymint/api"
	"github.com/xtruelegend/keymint/lib/allocation"
	"github.com/xtruelegend/keymint/lib/codec"
	"github.com/xtruelegend/keymint/lib/config"
	"github.com/xtruelegend/keymint/lib/feedback"
	"github.com/xtruelegend/keymint/lib/kv"
	"github.com/xtruelegend/keymint/lib/ledger"
	"github.com/xtruelegend/keymint/lib/lifecycle"
	"github.com/xtruelegend/keymint/lib/lockmgr"
	"github.com/xtruelegend/keymint/lib/logging"
	"github.com/xtruelegend/keymint/lib/notify"
	"github.com/xtruelegend/keymint/lib/payment"
	"github.com/xtruelegend/keymint/lib/pool"
	"github.com/xtruelegend/keymint/lib/pricing"
)

var (
	serveLogger = logging.GetLogger("serve")

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the keymint server",
		Long:    `Start the keymint server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KEYMINT_<flag> (e.g. KEYMINT_ENDPOINT=0.0.0.0:3000); the legacy variable names of existing deployments (KV_REST_API_URL, REDIS_URL, ADMIN_PASSWORD, ...) keep working`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(config.Init)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:3000", cmdUtil.WrapString("The address on which the API will listen (e.g. 0.0.0.0:3000)"))

	key = "product-name"
	ServeCmd.PersistentFlags().String(key, "License", cmdUtil.WrapString("Name of the product sold, used in receipts and purchase records"))

	key = "product-price"
	ServeCmd.PersistentFlags().String(key, "9.99", cmdUtil.WrapString("Flat unit price used when no tier document is configured"))

	key = "currency"
	ServeCmd.PersistentFlags().String(key, "USD", cmdUtil.WrapString("ISO currency code for orders"))

	key = "pricing-path"
	ServeCmd.PersistentFlags().String(key, "coupons.json", cmdUtil.WrapString("Path of the tier pricing document"))

	key = "keys-local-path"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path of the local key pool file (JSON list of keys, or an object with a keys field)"))

	key = "keys-remote-url"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("URL of the remote key pool document, used when no local pool file exists"))

	key = "keys-validate-url"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("URL of an external key validation service consulted as the last link of the verification chain"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("Directory for the local purchase record mirror"))

	key = "download-url-prefix"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Download link included in receipt mails (omitted when empty)"))

	key = "admin-report-email"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address that receives operator key reports"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "codec"
	ServeCmd.PersistentFlags().String(key, "json", cmdUtil.WrapString("Encoding for values stored in the backend (json, gob)"))
}

// processConfig binds the command line flags to viper so they take
// precedence over environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	return cmdUtil.BindCommandFlags(cmd)
}

// run wires all components and serves until interrupted
func run(_ *cobra.Command, _ []string) error {
	cfg := config.Load()

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SetGlobalLevel(level)

	serveLogger.Infof("starting keymint with config: %s", cfg.String())

	// storage and shared plumbing
	store := kv.Select(cfg)
	serializer, err := codec.Get(cfg.Codec)
	if err != nil {
		return err
	}
	locks := lockmgr.NewLocalLockManager()

	// domain components
	mirror := ledger.NewMirror(cfg.MirrorPath())
	l := ledger.New(store, serializer, mirror)
	src := pool.NewSource(cfg.KeysLocalPath, cfg.KeysRemoteURL)
	alloc := pool.NewAllocator(src, l, locks)
	engine := pricing.New(cfg.PricingPath, cfg.ProductPrice)
	notifier := notify.Select(cfg)
	provider := payment.NewPayPalProvider(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalEnv)

	purchases := allocation.NewService(
		provider, alloc, l, engine, notifier,
		cfg.ProductName, cfg.Currency, cfg.DownloadURLPrefix,
	)
	lcm := lifecycle.New(store, serializer, l, alloc, locks, cfg.ProductName)
	verifier := lifecycle.NewVerifier(lcm, cfg.ValidateURL)
	fb := feedback.New(store, serializer)

	if cfg.OperatorSecret == "" {
		serveLogger.Warnf("no operator secret configured, the admin api will reject everything")
	}

	server := api.NewServer(cfg, store, purchases, lcm, verifier, engine, l, fb, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.ListenAndServe(ctx)
}
