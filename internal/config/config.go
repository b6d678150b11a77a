// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cuderbk/adw-elt-pipeline/internal/ddl"
)

// SourceConfig holds the SQL Server connection settings.
type SourceConfig struct {
	Server                 string
	Port                   int
	Database               string
	User                   string
	Password               string
	Encrypt                string // "true", "false", "disable" or "strict"
	TrustServerCertificate bool
}

// SSHConfig holds the optional bastion used to reach SQL Server.
type SSHConfig struct {
	Host    string
	Port    int
	User    string
	KeyPath string
	HostKey string // authorized_keys line pinning the bastion host key
}

// Enabled returns true when an SSH host is configured.
func (s *SSHConfig) Enabled() bool {
	return s.Host != ""
}

// SnowflakeConfig holds the destination connection settings.
type SnowflakeConfig struct {
	Account   string
	User      string
	Password  string
	Warehouse string
	Database  string
	Schema    string
	Role      string
}

// StageConfig selects where exported files are staged for COPY.
type StageConfig struct {
	Kind   string // internal (default), s3, gcs or azure
	Name   string // stage name inside the destination database and schema
	URL    string // storage URL behind an external stage
	Prefix string // sub-path for uploaded files

	S3Region     string
	S3Endpoint   string
	S3KeyID      string
	S3Secret     string
	GCSKeyFile   string
	AzureAccount string
	AzureKey     string
}

// Config holds the configuration for one invocation of the migration.
type Config struct {
	Source    SourceConfig
	SSH       SSHConfig
	Snowflake SnowflakeConfig
	Stage     StageConfig

	OutputDir       string // directory for Parquet files (default ./parquet_files)
	TablePrefix     string // staging table name prefix (default STG_ADW_)
	DuplicatePolicy string // suffix (default) or fail
	BatchSize       int    // rows per Parquet write batch (default 10000)
	JournalPath     string // SQLite run journal; empty disables it
	LogLevel        string // debug, info, warn, error (default "info")
	LogFormat       string // json (default) or text

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// binding ties a config key to its environment variable, optional flag and default.
type binding struct {
	key   string
	env   string
	flag  string
	value any
	usage string
}

var bindings = []binding{
	{key: "source.server", env: "SERVER_MSSQL"},
	{key: "source.port", env: "MSSQL_PORT", value: 1433},
	{key: "source.database", env: "DATABASE_MSSQL"},
	{key: "source.user", env: "UID_MSSQL"},
	{key: "source.password", env: "PWD_MSSQL"},
	{key: "source.encrypt", env: "MSSQL_ENCRYPT", value: "true"},
	{key: "source.trust_server_certificate", env: "MSSQL_TRUST_SERVER_CERT", value: true},

	{key: "ssh.host", env: "SSH_HOST"},
	{key: "ssh.port", env: "SSH_PORT", value: 22},
	{key: "ssh.user", env: "SSH_USER"},
	{key: "ssh.key", env: "SSH_KEY"},
	{key: "ssh.host_key", env: "SSH_HOST_KEY"},

	{key: "snowflake.account", env: "SNOWFLAKE_ACCOUNT"},
	{key: "snowflake.user", env: "SNOWFLAKE_USER"},
	{key: "snowflake.password", env: "SNOWFLAKE_PASSWORD"},
	{key: "snowflake.warehouse", env: "SNOWFLAKE_WAREHOUSE"},
	{key: "snowflake.database", env: "SNOWFLAKE_DATABASE"},
	{key: "snowflake.schema", env: "SNOWFLAKE_SCHEMA"},
	{key: "snowflake.role", env: "SNOWFLAKE_ROLE"},

	{key: "stage.kind", env: "ADW_STAGE_KIND", flag: "stage-kind", value: "internal", usage: "stage kind: internal, s3, gcs or azure"},
	{key: "stage.name", env: "ADW_STAGE", flag: "stage", value: "staging_stage", usage: "Snowflake stage name in the target database and schema"},
	{key: "stage.url", env: "ADW_STAGE_URL", flag: "stage-url", value: "", usage: "storage URL behind an external stage (s3://, gs://, az://)"},
	{key: "stage.prefix", env: "ADW_STAGE_PREFIX", flag: "stage-prefix", value: "", usage: "sub-path for files uploaded to an external stage"},
	{key: "stage.s3_region", env: "ADW_S3_REGION"},
	{key: "stage.s3_endpoint", env: "ADW_S3_ENDPOINT"},
	{key: "stage.s3_key_id", env: "ADW_S3_KEY_ID"},
	{key: "stage.s3_secret", env: "ADW_S3_SECRET"},
	{key: "stage.gcs_key_file", env: "ADW_GCS_KEY_FILE"},
	{key: "stage.azure_account", env: "ADW_AZURE_ACCOUNT"},
	{key: "stage.azure_key", env: "ADW_AZURE_KEY"},

	{key: "output_dir", env: "ADW_OUTPUT_DIR", flag: "output-dir", value: "./parquet_files", usage: "directory for exported Parquet files"},
	{key: "table_prefix", env: "ADW_TABLE_PREFIX", flag: "table-prefix", value: "STG_ADW_", usage: "prefix for staging table names"},
	{key: "duplicate_policy", env: "ADW_DUPLICATE_POLICY", flag: "duplicate-policy", value: "suffix", usage: "duplicate column handling: suffix or fail"},
	{key: "batch_size", env: "ADW_BATCH_SIZE", flag: "batch-size", value: 10000, usage: "rows per Parquet write batch"},
	{key: "journal", env: "ADW_JOURNAL", flag: "journal", value: "adw_elt_journal.sqlite", usage: "SQLite run journal path (\"none\" disables)"},
	{key: "log_level", env: "LOG_LEVEL", flag: "log-level", value: "info", usage: "log level: debug, info, warn, error"},
	{key: "log_format", env: "ADW_LOG_FORMAT", flag: "log-format", value: "json", usage: "log format: json or text"},
}

// RegisterFlags adds the configuration flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "YAML config file")
	flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	for _, b := range bindings {
		if b.flag == "" {
			continue
		}
		switch v := b.value.(type) {
		case int:
			flags.Int(b.flag, v, b.usage)
		case bool:
			flags.Bool(b.flag, v, b.usage)
		case string:
			flags.String(b.flag, v, b.usage)
		}
	}
}

// Load reads configuration from, in increasing precedence: defaults, the
// YAML config file, the environment (after loading the dotenv file, which
// never overrides variables already set) and flags that were set explicitly.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	envFile, configFile := ".env", ""
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for _, b := range bindings {
		if b.value != nil {
			v.SetDefault(b.key, b.value)
		}
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", b.env, err)
		}
		if flags != nil && b.flag != "" {
			if f := flags.Lookup(b.flag); f != nil {
				if err := v.BindPFlag(b.key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", b.flag, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Source: SourceConfig{
			Server:                 v.GetString("source.server"),
			Port:                   v.GetInt("source.port"),
			Database:               v.GetString("source.database"),
			User:                   v.GetString("source.user"),
			Password:               v.GetString("source.password"),
			Encrypt:                v.GetString("source.encrypt"),
			TrustServerCertificate: v.GetBool("source.trust_server_certificate"),
		},
		SSH: SSHConfig{
			Host:    v.GetString("ssh.host"),
			Port:    v.GetInt("ssh.port"),
			User:    v.GetString("ssh.user"),
			KeyPath: v.GetString("ssh.key"),
			HostKey: v.GetString("ssh.host_key"),
		},
		Snowflake: SnowflakeConfig{
			Account:   v.GetString("snowflake.account"),
			User:      v.GetString("snowflake.user"),
			Password:  v.GetString("snowflake.password"),
			Warehouse: v.GetString("snowflake.warehouse"),
			Database:  v.GetString("snowflake.database"),
			Schema:    v.GetString("snowflake.schema"),
			Role:      v.GetString("snowflake.role"),
		},
		Stage: StageConfig{
			Kind:         strings.ToLower(v.GetString("stage.kind")),
			Name:         v.GetString("stage.name"),
			URL:          v.GetString("stage.url"),
			Prefix:       v.GetString("stage.prefix"),
			S3Region:     v.GetString("stage.s3_region"),
			S3Endpoint:   v.GetString("stage.s3_endpoint"),
			S3KeyID:      v.GetString("stage.s3_key_id"),
			S3Secret:     v.GetString("stage.s3_secret"),
			GCSKeyFile:   v.GetString("stage.gcs_key_file"),
			AzureAccount: v.GetString("stage.azure_account"),
			AzureKey:     v.GetString("stage.azure_key"),
		},
		OutputDir:       v.GetString("output_dir"),
		TablePrefix:     v.GetString("table_prefix"),
		DuplicatePolicy: strings.ToLower(v.GetString("duplicate_policy")),
		BatchSize:       v.GetInt("batch_size"),
		JournalPath:     journalPath(v.GetString("journal")),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       strings.ToLower(v.GetString("log_format")),
	}

	if cfg.Source.Password == "" && cfg.Source.User != "" {
		cfg.Warnings = append(cfg.Warnings, "PWD_MSSQL is empty")
	}
	if cfg.SSH.Enabled() && cfg.SSH.HostKey == "" {
		cfg.Warnings = append(cfg.Warnings, "SSH_HOST_KEY not set, the bastion host key is not verified")
	}
	return cfg, nil
}

// journalPath treats "none" and "off" as disabling the journal.
func journalPath(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "none", "off":
		return ""
	}
	return p
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateSource checks the settings needed to read from SQL Server.
func (c *Config) ValidateSource() error {
	return joinProblems(c.sourceProblems())
}

func (c *Config) sourceProblems() []string {
	var problems []string
	problems = append(problems, missing(map[string]string{
		"SERVER_MSSQL":   c.Source.Server,
		"DATABASE_MSSQL": c.Source.Database,
	})...)
	if c.SSH.Enabled() {
		problems = append(problems, missing(map[string]string{
			"SSH_USER": c.SSH.User,
			"SSH_KEY":  c.SSH.KeyPath,
		})...)
	}
	return problems
}

// Validate checks every setting needed for a full migration.
func (c *Config) Validate() error {
	problems := c.sourceProblems()
	problems = append(problems, missing(map[string]string{
		"SNOWFLAKE_ACCOUNT":  c.Snowflake.Account,
		"SNOWFLAKE_USER":     c.Snowflake.User,
		"SNOWFLAKE_DATABASE": c.Snowflake.Database,
		"SNOWFLAKE_SCHEMA":   c.Snowflake.Schema,
	})...)
	if c.Snowflake.Schema != "" {
		if err := ddl.ValidateIdentifier(c.Snowflake.Schema); err != nil {
			problems = append(problems, fmt.Sprintf("SNOWFLAKE_SCHEMA is not a valid identifier: %v", err))
		}
	}
	if c.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.Stage.Kind != "" && c.Stage.Kind != "internal" && c.Stage.URL == "" {
		problems = append(problems, fmt.Sprintf("ADW_STAGE_URL is required for a %s stage", c.Stage.Kind))
	}
	return joinProblems(problems)
}

// missing reports the variables whose values are blank, sorted by name.
func missing(values map[string]string) []string {
	var names []string
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return []string{"missing " + strings.Join(names, ", ")}
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}
