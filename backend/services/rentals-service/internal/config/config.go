package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type Config struct {
	OrganizationName string
	AppName          string
	Env              string
	AppPort          string
	AppUrl           string
	UniqueRunNumber  string
	UniqueRunnerID   string

	// Database
	DBUrl           string
	DBEncryptionKey []byte

	// Hosted auth + storage
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      []byte
	StorageBucket          string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Twilio / SendGrid
	TwilioAccountSID string
	TwilioAuthToken  string
	SendGridAPIKey   string

	OpenAIAPIKey string
	GMapsAPIKey  string
	RedisURL     string

	AdminInboxEmail string

	// Proxies allowed to set X-Forwarded-For, as CIDRs
	TrustedProxies []string

	// LaunchDarkly flags
	LDFlag_CORSHighSecurity          bool
	LDFlag_SendgridFromEmail         string
	LDFlag_SendgridSandboxMode       bool
	LDFlag_TwilioFromPhone           string
	LDFlag_ValidateEmailWithSendGrid bool
	LDFlag_AIMaintenanceTriage       bool
	LDFlag_GeocodeProperties         bool
	LDFlag_SeedDbWithTestData        bool
	LDFlag_PaymentPendingTTLHours    int
	LDFlag_PropertyCacheTTLSeconds   int
}

const (
	OrganizationName    = utils.OrganizationName
	LDConnectionTimeout = 5 * time.Second

	DefaultPaymentPendingTTLHours  = 72
	DefaultPropertyCacheTTLSeconds = 60
	DefaultStorageBucket           = "documents"
)

// build-time overrides
var (
	AppName             string
	UniqueRunNumber     string
	UniqueRunnerID      string
	LDServerContextKey  string
	LDServerContextKind string
)

// PaymentPendingTTL is how long a tenant has to pay once payment is requested.
func (c *Config) PaymentPendingTTL() time.Duration {
	if c.LDFlag_PaymentPendingTTLHours <= 0 {
		return DefaultPaymentPendingTTLHours * time.Hour
	}
	return time.Duration(c.LDFlag_PaymentPendingTTLHours) * time.Hour
}

func (c *Config) PropertyCacheTTL() time.Duration {
	if c.LDFlag_PropertyCacheTTLSeconds <= 0 {
		return DefaultPropertyCacheTTLSeconds * time.Second
	}
	return time.Duration(c.LDFlag_PropertyCacheTTLSeconds) * time.Second
}

func LoadConfig() *Config {
	// Local runs keep secrets in .env; deployed envs have no file.
	if err := godotenv.Load(); err == nil {
		utils.Logger.Info("Loaded environment from .env")
	}

	if AppName == "" {
		AppName = envOr("APP_NAME", "rentals-service")
	}
	if UniqueRunNumber == "" {
		UniqueRunNumber = envOr("UNIQUE_RUN_NUMBER", "0")
	}
	if UniqueRunnerID == "" {
		UniqueRunnerID = envOr("UNIQUE_RUNNER_ID", "local")
	}
	if LDServerContextKey == "" {
		LDServerContextKey = envOr("LD_SERVER_CONTEXT_KEY", "rentals-service")
	}
	if LDServerContextKind == "" {
		LDServerContextKind = envOr("LD_SERVER_CONTEXT_KIND", "service")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	env := os.Getenv("ENV")
	if env == "" {
		utils.Logger.Fatal("ENV env var is missing")
	}
	appUrl := os.Getenv("APP_URL_FROM_ANYWHERE")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}

	secrets, err := utils.LoadSecrets(fmt.Sprintf("%s-%s", AppName, env), fmt.Sprintf("shared-%s", env))
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to fetch secrets from BWS")
	}

	dbURL := require(secrets, "DB_URL")

	dbEncKey, err := base64.StdEncoding.DecodeString(require(secrets, "DB_ENCRYPTION_KEY_BASE64"))
	if err != nil || len(dbEncKey) != 32 {
		utils.Logger.Fatal("DB_ENCRYPTION_KEY_BASE64 invalid, expect 32-byte key")
	}

	jwtSecret := require(secrets, "SUPABASE_JWT_SECRET")

	cfg := &Config{
		OrganizationName:       OrganizationName,
		AppName:                AppName,
		Env:                    env,
		AppPort:                appPort,
		AppUrl:                 appUrl,
		UniqueRunNumber:        UniqueRunNumber,
		UniqueRunnerID:         UniqueRunnerID,
		DBUrl:                  dbURL,
		DBEncryptionKey:        dbEncKey,
		SupabaseURL:            strings.TrimRight(secrets.Get("SUPABASE_URL"), "/"),
		SupabaseServiceRoleKey: secrets.Get("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseJWTSecret:      []byte(jwtSecret),
		StorageBucket:          envOr("STORAGE_BUCKET", DefaultStorageBucket),
		StripeSecretKey:        require(secrets, "STRIPE_SECRET_KEY"),
		StripeWebhookSecret:    require(secrets, "STRIPE_WEBHOOK_SECRET"),
		TwilioAccountSID:       secrets.Get("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:        secrets.Get("TWILIO_AUTH_TOKEN"),
		SendGridAPIKey:         secrets.Get("SENDGRID_API_KEY"),
		OpenAIAPIKey:           secrets.Get("OPENAI_API_KEY"),
		GMapsAPIKey:            secrets.Get("GMAPS_API_KEY"),
		RedisURL:               secrets.Get("REDIS_URL"),
		AdminInboxEmail:        envOr("ADMIN_INBOX_EMAIL", utils.SupportEmail),
		TrustedProxies:         strings.Split(os.Getenv("TRUSTED_PROXIES"), ","),
	}
	if cfg.SendGridAPIKey == "" {
		utils.Logger.Warn("SENDGRID_API_KEY missing; emails will be logged and dropped")
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		utils.Logger.Warn("SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY missing; document uploads are disabled")
	}

	loadFlags(cfg, secrets.Get("LD_SDK_KEY"))
	return cfg
}

// loadFlags evaluates every flag once at boot. Without an SDK key the
// client runs offline and each flag takes its default.
func loadFlags(cfg *Config, sdkKey string) {
	var ldConfig ld.Config
	if sdkKey == "" {
		utils.Logger.Warn("LD_SDK_KEY missing; LaunchDarkly offline, using flag defaults")
		ldConfig.Offline = true
	}

	ldClient, err := ld.MakeCustomClient(sdkKey, ldConfig, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldConfig.Offline && !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	ctx := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)

	boolFlag := func(key string, def bool) bool {
		v, err := ldClient.BoolVariation(key, ctx, def)
		if err != nil {
			utils.Logger.WithError(err).Warnf("Error retrieving %s flag, using %t", key, def)
			return def
		}
		utils.Logger.Debugf("%s flag: %t", key, v)
		return v
	}
	stringFlag := func(key, def string) string {
		v, err := ldClient.StringVariation(key, ctx, def)
		if err != nil || v == "" {
			utils.Logger.Warnf("%s flag is empty, defaulting to %s", key, def)
			return def
		}
		utils.Logger.Debugf("%s flag: %s", key, v)
		return v
	}
	intFlag := func(key string, def int) int {
		v, err := ldClient.IntVariation(key, ctx, def)
		if err != nil {
			utils.Logger.WithError(err).Warnf("Error retrieving %s flag, using %d", key, def)
			return def
		}
		utils.Logger.Debugf("%s flag: %d", key, v)
		return v
	}

	cfg.LDFlag_CORSHighSecurity = boolFlag("cors_high_security", false)
	cfg.LDFlag_SendgridFromEmail = stringFlag("sendgrid_from_email", "no-reply@palmsestate.com")
	cfg.LDFlag_SendgridSandboxMode = boolFlag("sendgrid_sandbox_mode", cfg.Env != "prod")
	cfg.LDFlag_TwilioFromPhone = stringFlag("twilio_from_phone", "+10005550006")
	cfg.LDFlag_ValidateEmailWithSendGrid = boolFlag("validate_email_with_sendgrid", false)
	cfg.LDFlag_AIMaintenanceTriage = boolFlag("ai_maintenance_triage", false)
	cfg.LDFlag_GeocodeProperties = boolFlag("geocode_properties", false)
	cfg.LDFlag_SeedDbWithTestData = boolFlag("seed_db_with_test_data", false)
	cfg.LDFlag_PaymentPendingTTLHours = intFlag("payment_pending_ttl_hours", DefaultPaymentPendingTTLHours)
	cfg.LDFlag_PropertyCacheTTLSeconds = intFlag("property_cache_ttl_seconds", DefaultPropertyCacheTTLSeconds)

	if cfg.LDFlag_AIMaintenanceTriage && cfg.OpenAIAPIKey == "" {
		utils.Logger.Warn("ai_maintenance_triage enabled but OPENAI_API_KEY missing; triage disabled")
		cfg.LDFlag_AIMaintenanceTriage = false
	}
	if cfg.LDFlag_GeocodeProperties && cfg.GMapsAPIKey == "" {
		utils.Logger.Warn("geocode_properties enabled but GMAPS_API_KEY missing; geocoding disabled")
		cfg.LDFlag_GeocodeProperties = false
	}
}

func require(s utils.Secrets, key string) string {
	v := s.Get(key)
	if v == "" {
		utils.Logger.Fatalf("%s not found in BWS or environment", key)
	}
	return v
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (c *Config) Close() {}
