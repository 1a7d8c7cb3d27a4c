package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the cost pipeline binaries.
type Config struct {
	// S3
	S3Bucket     string
	S3Prefix     string // daily CSVs live under <prefix>/<date>.csv
	ProcessedKey string // S3 key of the processed-files ledger document
	AWSRegion    string

	// Optional explicit AWS credentials. When unset the SDK default chain
	// (env, shared config, IAM role) applies.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string

	// Watcher loop
	PollInterval  time.Duration // Default: 1h
	RetentionDays int           // Default: 180; an explicit 0 disables the purge

	// retentionSet records that retention-days was given explicitly, so an
	// operator's 0 (keep data forever) is not rewritten to the default.
	retentionSet bool

	// InfluxDB
	InfluxURL    string
	InfluxToken  string
	InfluxSecret string // AWS Secrets Manager secret name holding the token
	InfluxOrg    string // Default: my_org
	InfluxBucket string // Default: cost_data

	// Exporter
	ExportSchedule string // cron spec, Default: "0 1 * * *"

	// Logging
	LogDir string // empty means log to stdout
	Debug  bool
}

const (
	defaultS3Prefix       = "costs"
	defaultProcessedKey   = "process_keys/processed_files.json"
	defaultPollInterval   = time.Hour
	defaultRetentionDays  = 180
	defaultInfluxOrg      = "my_org"
	defaultInfluxBucket   = "cost_data"
	defaultExportSchedule = "0 1 * * *"
)

// LoadConfig loads configuration from CLI flags, environment variables, and YAML file.
// Priority: CLI flags > environment variables > YAML file > defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	s3Bucket := flag.String("s3-bucket", "", "S3 bucket name")
	s3Prefix := flag.String("s3-prefix", "", "S3 key prefix for daily CSVs (default: costs)")
	processedKey := flag.String("processed-key", "", "S3 key of the processed-files ledger (default: process_keys/processed_files.json)")
	awsRegion := flag.String("aws-region", "", "AWS region")
	awsAccessKeyID := flag.String("aws-access-key-id", "", "AWS access key ID (optional, SDK default chain otherwise)")
	awsSecretAccessKey := flag.String("aws-secret-access-key", "", "AWS secret access key (optional)")
	awsSessionToken := flag.String("aws-session-token", "", "AWS session token (optional)")
	pollInterval := flag.Duration("poll-interval", 0, "Watcher poll interval (default: 1h)")
	retentionDays := flag.Int("retention-days", -1, "Delete points older than this many days; 0 disables the purge (default: 180)")
	influxURL := flag.String("influx-url", "", "InfluxDB URL")
	influxToken := flag.String("influx-token", "", "InfluxDB API token")
	influxSecret := flag.String("influx-secret", "", "AWS Secrets Manager secret name holding the InfluxDB token")
	influxOrg := flag.String("influx-org", "", "InfluxDB organization (default: my_org)")
	influxBucket := flag.String("influx-bucket", "", "InfluxDB bucket (default: cost_data)")
	exportSchedule := flag.String("export-schedule", "", "Exporter cron schedule (default: 0 1 * * *)")
	configFile := flag.String("config-file", "costwatcher-config.yaml", "Config file path")
	logDir := flag.String("log-dir", "", "Write logs to a file in this directory instead of stdout")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	if *configFile != "" {
		if err := loadFromYAML(cfg, *configFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	// CLI flags win
	if *s3Bucket != "" {
		cfg.S3Bucket = *s3Bucket
	}
	if *s3Prefix != "" {
		cfg.S3Prefix = *s3Prefix
	}
	if *processedKey != "" {
		cfg.ProcessedKey = *processedKey
	}
	if *awsRegion != "" {
		cfg.AWSRegion = *awsRegion
	}
	if *awsAccessKeyID != "" {
		cfg.AWSAccessKeyID = *awsAccessKeyID
	}
	if *awsSecretAccessKey != "" {
		cfg.AWSSecretAccessKey = *awsSecretAccessKey
	}
	if *awsSessionToken != "" {
		cfg.AWSSessionToken = *awsSessionToken
	}
	if *pollInterval > 0 {
		cfg.PollInterval = *pollInterval
	}
	if *retentionDays >= 0 {
		cfg.RetentionDays = *retentionDays
		cfg.retentionSet = true
	}
	if *influxURL != "" {
		cfg.InfluxURL = *influxURL
	}
	if *influxToken != "" {
		cfg.InfluxToken = *influxToken
	}
	if *influxSecret != "" {
		cfg.InfluxSecret = *influxSecret
	}
	if *influxOrg != "" {
		cfg.InfluxOrg = *influxOrg
	}
	if *influxBucket != "" {
		cfg.InfluxBucket = *influxBucket
	}
	if *exportSchedule != "" {
		cfg.ExportSchedule = *exportSchedule
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *debug {
		cfg.Debug = true
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.S3Prefix == "" {
		c.S3Prefix = defaultS3Prefix
	}
	if c.ProcessedKey == "" {
		c.ProcessedKey = defaultProcessedKey
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if !c.retentionSet && c.RetentionDays == 0 {
		c.RetentionDays = defaultRetentionDays
	}
	if c.InfluxOrg == "" {
		c.InfluxOrg = defaultInfluxOrg
	}
	if c.InfluxBucket == "" {
		c.InfluxBucket = defaultInfluxBucket
	}
	if c.ExportSchedule == "" {
		c.ExportSchedule = defaultExportSchedule
	}
}

// Validate checks the fields every binary needs. Config problems are fatal at
// startup; the loop must never run half-configured.
func (c *Config) Validate() error {
	if c.S3Bucket == "" {
		return fmt.Errorf("s3-bucket is required")
	}
	if c.AWSRegion == "" {
		return fmt.Errorf("aws-region is required")
	}
	if c.InfluxURL == "" {
		return fmt.Errorf("influx-url is required")
	}
	if c.InfluxToken == "" && c.InfluxSecret == "" {
		return fmt.Errorf("one of influx-token or influx-secret is required")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll-interval must be at least 1s, got %s", c.PollInterval)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention-days must not be negative, got %d", c.RetentionDays)
	}
	return nil
}

// loadFromYAML loads configuration from a YAML file.
func loadFromYAML(cfg *Config, filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}

	var yamlCfg struct {
		S3Bucket       string `yaml:"s3_bucket"`
		S3Prefix       string `yaml:"s3_prefix"`
		ProcessedKey   string `yaml:"processed_key"`
		AWSRegion      string `yaml:"aws_region"`
		PollInterval   string `yaml:"poll_interval"`
		RetentionDays  *int   `yaml:"retention_days"` // pointer so an explicit 0 survives
		InfluxURL      string `yaml:"influx_url"`
		InfluxToken    string `yaml:"influx_token"`
		InfluxSecret   string `yaml:"influx_secret"`
		InfluxOrg      string `yaml:"influx_org"`
		InfluxBucket   string `yaml:"influx_bucket"`
		ExportSchedule string `yaml:"export_schedule"`
		LogDir         string `yaml:"log_dir"`
		Debug          bool   `yaml:"debug"`
	}

	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return err
	}

	if yamlCfg.S3Bucket != "" {
		cfg.S3Bucket = yamlCfg.S3Bucket
	}
	if yamlCfg.S3Prefix != "" {
		cfg.S3Prefix = yamlCfg.S3Prefix
	}
	if yamlCfg.ProcessedKey != "" {
		cfg.ProcessedKey = yamlCfg.ProcessedKey
	}
	if yamlCfg.AWSRegion != "" {
		cfg.AWSRegion = yamlCfg.AWSRegion
	}
	if yamlCfg.PollInterval != "" {
		d, err := time.ParseDuration(yamlCfg.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval %q: %w", yamlCfg.PollInterval, err)
		}
		cfg.PollInterval = d
	}
	if yamlCfg.RetentionDays != nil && *yamlCfg.RetentionDays >= 0 {
		cfg.RetentionDays = *yamlCfg.RetentionDays
		cfg.retentionSet = true
	}
	if yamlCfg.InfluxURL != "" {
		cfg.InfluxURL = yamlCfg.InfluxURL
	}
	if yamlCfg.InfluxToken != "" {
		cfg.InfluxToken = yamlCfg.InfluxToken
	}
	if yamlCfg.InfluxSecret != "" {
		cfg.InfluxSecret = yamlCfg.InfluxSecret
	}
	if yamlCfg.InfluxOrg != "" {
		cfg.InfluxOrg = yamlCfg.InfluxOrg
	}
	if yamlCfg.InfluxBucket != "" {
		cfg.InfluxBucket = yamlCfg.InfluxBucket
	}
	if yamlCfg.ExportSchedule != "" {
		cfg.ExportSchedule = yamlCfg.ExportSchedule
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Debug {
		cfg.Debug = true
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if val := os.Getenv("COSTW_S3_BUCKET"); val != "" {
		cfg.S3Bucket = val
	}
	if val := os.Getenv("COSTW_S3_PREFIX"); val != "" {
		cfg.S3Prefix = val
	}
	if val := os.Getenv("COSTW_PROCESSED_KEY"); val != "" {
		cfg.ProcessedKey = val
	}
	if val := os.Getenv("COSTW_AWS_REGION"); val != "" {
		cfg.AWSRegion = val
	}
	if val := os.Getenv("COSTW_POLL_INTERVAL"); val != "" {
		// Accept bare seconds for parity with the old deployment env, or a
		// Go duration string.
		if secs, err := strconv.Atoi(val); err == nil {
			cfg.PollInterval = time.Duration(secs) * time.Second
		} else if d, err := time.ParseDuration(val); err == nil {
			cfg.PollInterval = d
		}
	}
	if val := os.Getenv("COSTW_RETENTION_DAYS"); val != "" {
		if days, err := strconv.Atoi(val); err == nil && days >= 0 {
			cfg.RetentionDays = days
			cfg.retentionSet = true
		}
	}
	if val := os.Getenv("COSTW_INFLUX_URL"); val != "" {
		cfg.InfluxURL = val
	}
	if val := os.Getenv("COSTW_INFLUX_TOKEN"); val != "" {
		cfg.InfluxToken = val
	}
	if val := os.Getenv("COSTW_INFLUX_SECRET"); val != "" {
		cfg.InfluxSecret = val
	}
	if val := os.Getenv("COSTW_INFLUX_ORG"); val != "" {
		cfg.InfluxOrg = val
	}
	if val := os.Getenv("COSTW_INFLUX_BUCKET"); val != "" {
		cfg.InfluxBucket = val
	}
	if val := os.Getenv("COSTW_EXPORT_SCHEDULE"); val != "" {
		cfg.ExportSchedule = val
	}
	if val := os.Getenv("COSTW_LOG_DIR"); val != "" {
		cfg.LogDir = val
	}
	if val := os.Getenv("COSTW_DEBUG"); val != "" {
		cfg.Debug = (val == "true" || val == "1")
	}
}
