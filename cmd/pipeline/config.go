package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/dmaliar/cashback-pipeline/internal/logger"
)

const (
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultDataDir         = "./data"
	defaultFetchLimit      = 300
	defaultCatalogDatabase = "cashback"
	defaultCatalogTable    = "transformed_data"
	defaultTargetTable     = "public.cashback"
	defaultKeyColumn       = "reward_id"
	defaultMetricsJob      = "cashback-pipeline"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Warehouse database to load into
	DatabaseDSN string `validate:"required"`

	// Root directory for the staged CSVs and the parquet dataset
	DataDir string `validate:"required"`

	// S3 bucket for staged snapshots; local filesystem when empty
	S3Bucket string
	S3Region string

	// Rewards platform credentials
	APIEmail      string `validate:"required"`
	APIPassword   string `validate:"required"`
	APITOTPSecret string `validate:"required"`
	APIClientID   string `validate:"required"`
	APISiteKey    string

	// How many transactions to pull per run
	FetchLimit int `validate:"gt=0"`

	// Catalog entry the crawled dataset registers under
	CatalogDatabase string `validate:"required"`
	CatalogTable    string `validate:"required"`

	// Warehouse target table and the dedup key column
	TargetTable string `validate:"required"`
	KeyColumn   string `validate:"oneof=reward_id id"`

	// Pushgateway to report run metrics to; metrics are dropped when empty
	PushgatewayURL string
	MetricsJob     string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		Environment:     defaultEnvironment,
		DataDir:         defaultDataDir,
		FetchLimit:      defaultFetchLimit,
		CatalogDatabase: defaultCatalogDatabase,
		CatalogTable:    defaultCatalogTable,
		TargetTable:     defaultTargetTable,
		KeyColumn:       defaultKeyColumn,
		MetricsJob:      defaultMetricsJob,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"DATABASE_URI":     setString(&c.DatabaseDSN),
		"DATA_DIR":         setString(&c.DataDir),
		"S3_BUCKET":        setString(&c.S3Bucket),
		"S3_REGION":        setString(&c.S3Region),
		"USER_ID":          setString(&c.APIEmail),
		"PASS_ID":          setString(&c.APIPassword),
		"AUTH_SECRET":      setString(&c.APITOTPSecret),
		"CLIENT_ID":        setString(&c.APIClientID),
		"SITEKEY":          setString(&c.APISiteKey),
		"FETCH_LIMIT":      setInt(&c.FetchLimit),
		"CATALOG_DATABASE": setString(&c.CatalogDatabase),
		"CATALOG_TABLE":    setString(&c.CatalogTable),
		"TARGET_TABLE":     setString(&c.TargetTable),
		"KEY_COLUMN":       setString(&c.KeyColumn),
		"PUSHGATEWAY_URL":  setString(&c.PushgatewayURL),
		"METRICS_JOB":      setString(&c.MetricsJob),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("pipeline", pflag.ContinueOnError)

	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Warehouse connection string")
	fs.StringVarP(&c.DataDir, "data-dir", "o", c.DataDir, "Root directory for staged and published data")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.IntVarP(&c.FetchLimit, "limit", "n", c.FetchLimit, "How many transactions to fetch per run")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket for staged snapshots (local filesystem when empty)")
	fs.StringVar(&c.KeyColumn, "key-column", c.KeyColumn, "Dedup key column for the warehouse merge (reward_id or id)")
	fs.StringVar(&c.TargetTable, "target-table", c.TargetTable, "Warehouse table to merge into")
	fs.StringVar(&c.PushgatewayURL, "pushgateway", c.PushgatewayURL, "Pushgateway base URL for run metrics")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
