package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/export-ingest/pkg/logging"
)

const Production = "production"

const (
	MergePolicyMax = "max"
	MergePolicyNew = "new"
)

// LoadEnv loads the env files that exist, in order, and reports how many were
// found. Missing files are not an error.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"linkedin_analytics"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// IngestOptions is everything the ingestion core consumes.
type IngestOptions struct {
	CompanyID      string `env:"COMPANY_ID" envDefault:"wentors" validate:"required"`
	CompanyName    string `env:"COMPANY_NAME" envDefault:"Wentors"`
	DataPath       string `env:"LINKEDIN_DATA_PATH" envDefault:"./linkedin_exports/" validate:"required"`
	ReportsPath    string `env:"VALIDATION_REPORTS_PATH" envDefault:"./validation_reports/" validate:"required"`
	DayFirst       bool   `env:"LINKEDIN_DATE_DMY" envDefault:"false"`
	MergePolicy    string `env:"POST_UPDATE_POLICY" envDefault:"max" validate:"oneof=max new"`
	HistoryEnabled bool   `env:"ANALYTICS_HISTORY_ENABLED" envDefault:"true"`
	RulesPath      string `env:"INGEST_RULES_PATH"`
}

type LoggingOptions struct {
	Level string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=silent error warn info debug"`
	Path  string `env:"LOG_PATH" envDefault:"./logs/ingest.log"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"export-ingest"`
}

type PrometheusOptions struct {
	// TextfilePath is written after each run for the node_exporter textfile collector.
	TextfilePath string `env:"PROMETHEUS_TEXTFILE_PATH"`
}

type Configuration struct {
	Database      DatabaseOptions
	Ingest        IngestOptions
	Logging       LoggingOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`

	logFile *os.File
	logger  *logrus.Logger
}

// Load reads env files, parses the environment and validates the result.
// The returned Configuration must be released with Unload.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.Logging.Level)
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Logging.Path)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validate() error {
	c.Ingest.MergePolicy = strings.ToLower(strings.TrimSpace(c.Ingest.MergePolicy))
	if c.Ingest.MergePolicy == "" {
		c.Ingest.MergePolicy = MergePolicyMax
	}
	c.Ingest.CompanyID = strings.TrimSpace(c.Ingest.CompanyID)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Unload closes the log file.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
