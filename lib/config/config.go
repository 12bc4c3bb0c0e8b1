// Package config loads the application configuration from environment
// variables and .env files and makes it available as a single struct.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --------------------------------------------------------------------------
// Configuration struct
// --------------------------------------------------------------------------

// Config holds all configuration parameters for the storefront service.
type Config struct {
	// HTTP api settings
	Endpoint string

	// Storage backend selection. The REST key-value service takes precedence
	// if configured, then the direct redis connection, then nothing.
	KVRestURL   string
	KVRestToken string
	RedisURL    string

	// Key pool
	KeysLocalPath string
	KeysRemoteURL string
	ValidateURL   string

	// Local data directory (purchase record mirror for offline/dev parity)
	DataDir string

	// Product and pricing
	ProductName  string
	PricingPath  string
	ProductPrice string
	Currency     string

	// Payment capture (PayPal)
	PayPalClientID     string
	PayPalClientSecret string
	PayPalEnv          string

	// Notifier (SMTP)
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Operator surface
	OperatorSecret    string
	AdminReportEmail  string
	DownloadURLPrefix string

	// Logging configuration
	LogLevel string

	// Codec selects the backend value encoding, json or gob
	Codec string
}

// HasRestKV reports whether the REST key-value service is configured.
func (c *Config) HasRestKV() bool {
	return c.KVRestURL != "" && c.KVRestToken != ""
}

// HasRedis reports whether a direct redis connection is configured.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// MirrorPath returns the path of the local purchase record mirror file.
func (c *Config) MirrorPath() string {
	return filepath.Join(c.DataDir, "keys.json")
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// envKeys maps config fields to the environment variables they are read from.
// The first name that is set wins.
var envKeys = map[string][]string{
	"endpoint":             {"ENDPOINT", "PORT"},
	"kv-rest-url":          {"KV_REST_API_URL", "UPSTASH_REDIS_REST_URL"},
	"kv-rest-token":        {"KV_REST_API_TOKEN", "UPSTASH_REDIS_REST_TOKEN"},
	"redis-url":            {"REDIS_URL"},
	"keys-local-path":      {"KEYS_LOCAL_PATH"},
	"keys-remote-url":      {"KEYS_REMOTE_URL"},
	"keys-validate-url":    {"KEYS_VALIDATE_URL"},
	"data-dir":             {"DATA_DIR"},
	"product-name":         {"PRODUCT_NAME"},
	"pricing-path":         {"PRICING_PATH"},
	"product-price":        {"PRODUCT_PRICE"},
	"currency":             {"CURRENCY"},
	"paypal-client-id":     {"PAYPAL_CLIENT_ID"},
	"paypal-client-secret": {"PAYPAL_CLIENT_SECRET"},
	"paypal-env":           {"PAYPAL_ENV"},
	"smtp-host":            {"SMTP_HOST"},
	"smtp-port":            {"SMTP_PORT"},
	"smtp-user":            {"SMTP_USER"},
	"smtp-pass":            {"SMTP_PASS"},
	"smtp-from":            {"SMTP_FROM"},
	"operator-secret":      {"ADMIN_PASSWORD"},
	"admin-report-email":   {"ADMIN_REPORT_EMAIL"},
	"download-url-prefix":  {"DOWNLOAD_URL_PREFIX"},
	"log-level":            {"LOG_LEVEL"},
	"codec":                {"CODEC"},
}

// Init initializes viper: .env files are loaded and environment variables are
// bound. Must be called once before Load, typically from cobra.OnInitialize.
func Init() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("keymint")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// bind the legacy variable names used by existing deployments
	for key, names := range envKeys {
		args := append([]string{key}, names...)
		_ = viper.BindEnv(args...)
	}
}

// Load reads the configuration from viper (flags take precedence over
// environment variables, which take precedence over the defaults here).
func Load() *Config {
	setDefault := func(key, value string) {
		if !viper.IsSet(key) || viper.GetString(key) == "" {
			viper.SetDefault(key, value)
		}
	}

	setDefault("endpoint", "0.0.0.0:3000")
	setDefault("data-dir", "data")
	setDefault("product-name", "License")
	setDefault("pricing-path", "coupons.json")
	setDefault("product-price", "9.99")
	setDefault("currency", "USD")
	setDefault("paypal-env", "sandbox")
	setDefault("smtp-port", "587")
	setDefault("log-level", "info")
	setDefault("codec", "json")

	return &Config{
		Endpoint:           viper.GetString("endpoint"),
		KVRestURL:          strings.TrimSuffix(viper.GetString("kv-rest-url"), "/"),
		KVRestToken:        viper.GetString("kv-rest-token"),
		RedisURL:           viper.GetString("redis-url"),
		KeysLocalPath:      viper.GetString("keys-local-path"),
		KeysRemoteURL:      viper.GetString("keys-remote-url"),
		ValidateURL:        viper.GetString("keys-validate-url"),
		DataDir:            viper.GetString("data-dir"),
		ProductName:        viper.GetString("product-name"),
		PricingPath:        viper.GetString("pricing-path"),
		ProductPrice:       viper.GetString("product-price"),
		Currency:           viper.GetString("currency"),
		PayPalClientID:     viper.GetString("paypal-client-id"),
		PayPalClientSecret: viper.GetString("paypal-client-secret"),
		PayPalEnv:          viper.GetString("paypal-env"),
		SMTPHost:           viper.GetString("smtp-host"),
		SMTPPort:           viper.GetInt("smtp-port"),
		SMTPUser:           viper.GetString("smtp-user"),
		SMTPPass:           viper.GetString("smtp-pass"),
		SMTPFrom:           viper.GetString("smtp-from"),
		OperatorSecret:     viper.GetString("operator-secret"),
		AdminReportEmail:   viper.GetString("admin-report-email"),
		DownloadURLPrefix:  viper.GetString("download-url-prefix"),
		LogLevel:           viper.GetString("log-level"),
		Codec:              viper.GetString("codec"),
	}
}

// --------------------------------------------------------------------------
// Pretty printing
// --------------------------------------------------------------------------

// String returns a formatted string representation of the configuration.
// Secrets are redacted.
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	redact := func(s string) string {
		if s == "" {
			return "(unset)"
		}
		return "***"
	}

	backend := "none"
	switch {
	case c.HasRestKV():
		backend = "rest"
	case c.HasRedis():
		backend = "redis"
	}

	addSection("HTTP Server")
	addField("Endpoint", c.Endpoint)

	addSection("Storage")
	addField("Backend", backend)
	addField("REST URL", c.KVRestURL)
	addField("REST Token", redact(c.KVRestToken))
	addField("Redis URL", c.RedisURL)
	addField("Data Directory", c.DataDir)
	addField("Codec", c.Codec)

	addSection("Key Pool")
	addField("Local Path", c.KeysLocalPath)
	addField("Remote URL", c.KeysRemoteURL)
	addField("Validate URL", c.ValidateURL)

	addSection("Pricing")
	addField("Product", c.ProductName)
	addField("Document", c.PricingPath)
	addField("Base Price", c.ProductPrice)
	addField("Currency", c.Currency)

	addSection("Payment")
	addField("PayPal Env", c.PayPalEnv)
	addField("Client ID", redact(c.PayPalClientID))
	addField("Client Secret", redact(c.PayPalClientSecret))

	addSection("Notifier")
	addField("SMTP Host", c.SMTPHost)
	addField("SMTP Port", fmt.Sprintf("%d", c.SMTPPort))
	addField("SMTP From", c.SMTPFrom)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
