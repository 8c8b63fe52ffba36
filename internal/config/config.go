package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Twilio   TwilioConfig
	CallFlow CallFlowConfig
	S3       S3Config
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string

	// ValidateSignatures rejects webhooks without a valid X-Twilio-Signature.
	ValidateSignatures bool

	// TimeLimit caps a call and each dialed leg; Timeout caps ringing.
	TimeLimit time.Duration
	Timeout   time.Duration
}

type CallFlowConfig struct {
	// ApplicationRoot is the public base URL the provider calls back on.
	ApplicationRoot string

	LogPhoneNumbers bool

	// MaxZipAttempts bounds failed zip entries before hanging up; 0 is unbounded.
	MaxZipAttempts int
	ZipDigits      int

	DefaultCampaignID int64

	// CallerCapTTL reclaims a caller's outbound slot if the status callback never arrives.
	CallerCapTTL time.Duration
	// LookupCacheTTL bounds how long zipcode lookups are reused.
	LookupCacheTTL time.Duration
}

type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string

	PresignTTL time.Duration

	// PublicBaseURL serves recordings directly when no bucket is configured.
	PublicBaseURL string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	{
		n, err := optionalInt("REDIS_DB")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	{
		b, err := optionalBool("TWILIO_VALIDATE_SIGNATURES")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Twilio.ValidateSignatures = b
	}
	c.Twilio.TimeLimit = mustDuration("TWILIO_TIME_LIMIT")
	c.Twilio.Timeout = mustDuration("TWILIO_TIMEOUT")

	c.CallFlow.ApplicationRoot = strings.TrimSpace(os.Getenv("CALLFLOW_APPLICATION_ROOT"))
	{
		b, err := optionalBool("LOG_PHONE_NUMBERS")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.CallFlow.LogPhoneNumbers = b
	}
	{
		n, err := optionalInt("CALLFLOW_MAX_ZIP_ATTEMPTS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.CallFlow.MaxZipAttempts = n
		if os.Getenv("CALLFLOW_MAX_ZIP_ATTEMPTS") == "" {
			c.CallFlow.MaxZipAttempts = -1 // unset; defaulted in Validate
		}
	}
	{
		n, err := optionalInt("CALLFLOW_ZIP_DIGITS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.CallFlow.ZipDigits = n
	}
	{
		n, err := optionalInt("CALLFLOW_DEFAULT_CAMPAIGN_ID")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.CallFlow.DefaultCampaignID = int64(n)
	}
	c.CallFlow.CallerCapTTL = mustDuration("CALLFLOW_CALLER_CAP_TTL")
	c.CallFlow.LookupCacheTTL = mustDuration("CALLFLOW_LOOKUP_CACHE_TTL")

	c.S3.Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	c.S3.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	c.S3.Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	c.S3.AccessKey = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY"))
	c.S3.SecretKey = os.Getenv("S3_SECRET_KEY")
	c.S3.PresignTTL = mustDuration("S3_PRESIGN_TTL")
	c.S3.PublicBaseURL = strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		// Default: longer-lived refresh tokens.
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	errs = append(errs, c.validateTelephony()...)

	return joinErrors(errs)
}

func (c *Config) validateTelephony() []error {
	var errs []error

	if c.IsProduction() {
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required in production"))
		}
		if !c.Twilio.ValidateSignatures {
			errs = append(errs, errors.New("TWILIO_VALIDATE_SIGNATURES must be enabled in production"))
		}
	}
	if c.Twilio.ValidateSignatures && c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required to validate signatures"))
	}
	if c.Twilio.TimeLimit <= 0 {
		c.Twilio.TimeLimit = time.Hour
	}
	if c.Twilio.Timeout <= 0 {
		c.Twilio.Timeout = 30 * time.Second
	}

	root := c.CallFlow.ApplicationRoot
	if root == "" {
		if c.IsProduction() || c.Twilio.ValidateSignatures {
			errs = append(errs, errors.New("CALLFLOW_APPLICATION_ROOT is required"))
		}
	} else if u, err := url.Parse(root); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("CALLFLOW_APPLICATION_ROOT must be an absolute URL, got %q", root))
	}

	if c.CallFlow.MaxZipAttempts < 0 {
		c.CallFlow.MaxZipAttempts = 3
	}
	if c.CallFlow.ZipDigits <= 0 {
		c.CallFlow.ZipDigits = 5
	}
	if c.CallFlow.DefaultCampaignID < 0 {
		errs = append(errs, fmt.Errorf("CALLFLOW_DEFAULT_CAMPAIGN_ID must be positive, got %d", c.CallFlow.DefaultCampaignID))
	}
	if c.CallFlow.CallerCapTTL <= 0 {
		c.CallFlow.CallerCapTTL = c.Twilio.TimeLimit + 10*time.Minute
	}
	if c.CallFlow.LookupCacheTTL <= 0 {
		c.CallFlow.LookupCacheTTL = 10 * time.Minute
	}

	if c.S3.Bucket != "" && c.S3.Region == "" && c.S3.Endpoint == "" {
		errs = append(errs, errors.New("S3_REGION or S3_ENDPOINT is required when S3_BUCKET is set"))
	}
	if c.S3.PresignTTL <= 0 {
		c.S3.PresignTTL = time.Hour
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) IsDebug() bool {
	return c.App.Env == "local" || c.App.Env == "dev"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
