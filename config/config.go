// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath     = pflag.String("config", "", "Path to the config file (default ./config.toml)")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers   = []string{"sqlite", "postgres"}
)

// ErrMissingSecret is returned when no session secret is configured. The
// message carries a freshly generated secret.
var ErrMissingSecret = errors.New("no session secret provided")

// Every key that can be overridden from the environment. The variable
// name is the key in upper case with dots replaced by underscores.
var envKeys = []string{
	"app.log_level",
	"app.base_url",

	"host.port",
	"host.cors",
	"host.max_body_size",
	"host.ssl.enabled",
	"host.ssl.certificate_path",
	"host.ssl.certificate_key_path",

	"db.driver",
	"db.dsn",

	"security.session_secret",
	"security.session_ttl",
	"security.session_update_age",
	"security.rate_limit",
	"security.require_email_verification",

	"oauth.google.client_id",
	"oauth.google.client_secret",
	"oauth.github.client_id",
	"oauth.github.client_secret",

	"mail.enabled",
	"mail.host",
	"mail.port",
	"mail.username",
	"mail.password",
	"mail.sender",

	"redis.addr",
	"redis.password",
	"redis.db",

	"s3.enabled",
	"s3.bucket",
	"s3.region",
	"s3.endpoint",
	"s3.access_key",
	"s3.secret_access_key",
	"s3.presign_ttl",

	"turnstile.enabled",
	"turnstile.secret_token",

	"cleanup.schedule",
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	return Load(*configPath)
}

// Load reads the .env file, the environment and the config file at path,
// or ./config.toml when path is empty, and validates the result
func Load(path string) error {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file loaded", zap.Error(err))
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	for _, key := range envKeys {
		v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError

		// Without an explicit path everything can come from the environment
		if !errors.As(err, &notFound) || path != "" {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return validate()
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", []string{"http://localhost:3000"})
	v.SetDefault("host.max_body_size", 1<<20)
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")

	v.SetDefault("security.session_ttl", "168h")
	v.SetDefault("security.session_update_age", "24h")
	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.require_email_verification", false)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.presign_ttl", "15m")

	v.SetDefault("turnstile.enabled", false)

	v.SetDefault("cleanup.schedule", "@every 1h")
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt64("host.max_body_size") <= 0 {
		return errors.New("host.max_body_size must be bigger than 0")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.driver") == "postgres" && v.GetString("db.dsn") == "" {
		return errors.New("db.dsn is required for postgres")
	}

	if v.GetString("security.session_secret") == "" {
		return fmt.Errorf("%w, set security.session_secret in config.toml or SECURITY_SESSION_SECRET. Your random secret:\n\n%s", ErrMissingSecret, genSecret())
	}

	if v.GetDuration("security.session_ttl") <= 0 {
		return errors.New("security.session_ttl must be a positive duration")
	}

	if v.GetDuration("security.session_update_age") <= 0 {
		return errors.New("security.session_update_age must be a positive duration")
	}

	for _, provider := range []string{"google", "github"} {
		id := v.GetString("oauth." + provider + ".client_id")
		secret := v.GetString("oauth." + provider + ".client_secret")

		if (id == "") != (secret == "") {
			return fmt.Errorf("oauth.%s needs both client_id and client_secret", provider)
		}
	}

	if v.GetBool("mail.enabled") {
		if v.GetString("mail.host") == "" {
			return errors.New("mail host can't be empty")
		}

		if v.GetString("mail.sender") == "" {
			return errors.New("mail sender can't be empty")
		}
	}

	if v.GetBool("s3.enabled") {
		if v.GetString("s3.bucket") == "" {
			return errors.New("bucket can't be empty")
		}

		if v.GetString("s3.region") == "" {
			return errors.New("region can't be empty")
		}
	}

	if !v.GetBool("turnstile.enabled") {
		zap.L().Warn("Cloudflare's turnstile is disabled. Sign in and sign up won't be guarded against bots")
	} else if v.GetString("turnstile.secret_token") == "" {
		return errors.New("turnstile secret token is missing")
	}

	return nil
}
