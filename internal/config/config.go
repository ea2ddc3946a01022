package config

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"cv_analysis"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address           string        `envconfig:"CV_ANALYSIS_ADDRESS" default:":8080"`
	MetricsAddress    string        `envconfig:"CV_ANALYSIS_METRICS_ADDRESS" default:":8081"`
	BaseUrl           string        `envconfig:"CV_ANALYSIS_BASE_URL" default:"http://localhost:8080"`
	LogLevel          string        `envconfig:"CV_ANALYSIS_LOG_LEVEL" default:"info"`
	LogFormat         string        `envconfig:"CV_ANALYSIS_LOG_FORMAT" default:"console"`
	MigrationFolder   string        `envconfig:"CV_ANALYSIS_MIGRATIONS_FOLDER" default:""`
	UploadFolder      string        `envconfig:"CV_ANALYSIS_UPLOAD_FOLDER" default:""`
	MaxUploadSize     int64         `envconfig:"CV_ANALYSIS_MAX_UPLOAD_SIZE" default:"16777216"`
	AllowedExtensions []string      `envconfig:"CV_ANALYSIS_ALLOWED_EXTENSIONS" default:"pdf,docx,txt"`
	MaxWorkers        int64         `envconfig:"CV_ANALYSIS_MAX_WORKERS" default:"4"`
	ShutdownTimeout   time.Duration `envconfig:"CV_ANALYSIS_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins    []string      `envconfig:"CV_ANALYSIS_ALLOWED_ORIGINS" default:"http://localhost:8080"`
	Session           Session
	Janitor           Janitor
	Analyzer          Analyzer
	OpenAI            OpenAI
	ResultStore       ResultStore
	Kafka             kafkaConfig
}

type Session struct {
	SecretKey  string        `envconfig:"CV_ANALYSIS_SECRET_KEY" default:""`
	CookieName string        `envconfig:"CV_ANALYSIS_SESSION_COOKIE" default:"cv_session"`
	MaxAge     time.Duration `envconfig:"CV_ANALYSIS_SESSION_MAX_AGE" default:"720h"`
}

type Janitor struct {
	Interval time.Duration `envconfig:"CV_ANALYSIS_JANITOR_INTERVAL" default:"0s"`
	Schedule string        `envconfig:"CV_ANALYSIS_JANITOR_SCHEDULE" default:""`
}

// Analyzer holds the connection settings of the remote agent API used to analyze a single CV.
type Analyzer struct {
	BaseURL    string        `envconfig:"API_BASE_URL" default:""`
	Username   string        `envconfig:"API_USERNAME" default:""`
	Password   string        `envconfig:"API_PASSWORD" default:""`
	RevisionID string        `envconfig:"REVISION_ID" default:""`
	Timeout    time.Duration `envconfig:"API_TIMEOUT" default:"120s"`
}

type OpenAI struct {
	Endpoint   string        `envconfig:"AZURE_OPENAI_ENDPOINT" default:""`
	Key        string        `envconfig:"AZURE_OPENAI_KEY" default:""`
	Deployment string        `envconfig:"AZURE_OPENAI_DEPLOYMENT_NAME" default:"gpt-4o-mini"`
	APIVersion string        `envconfig:"AZURE_OPENAI_API_VERSION" default:"2023-12-01-preview"`
	Timeout    time.Duration `envconfig:"AZURE_OPENAI_TIMEOUT" default:"120s"`
}

// Configured reports whether the summarizer can be used at all.
func (o OpenAI) Configured() bool {
	return o.Endpoint != "" && o.Key != ""
}

type ResultStore struct {
	Backend   string `envconfig:"RESULT_STORE_BACKEND" default:"db"`
	Endpoint  string `envconfig:"S3_ENDPOINT" default:""`
	Bucket    string `envconfig:"S3_BUCKET" default:"cv-analysis-results"`
	AccessKey string `envconfig:"S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`
}

type kafkaConfig struct {
	Brokers  []string `envconfig:"CV_ANALYSIS_KAFKA_BROKERS" default:""`
	Topic    string   `envconfig:"CV_ANALYSIS_KAFKA_TOPIC" default:""`
	Version  string   `envconfig:"CV_ANALYSIS_KAFKA_VERSION" default:""`
	ClientID string   `envconfig:"CV_ANALYSIS_KAFKA_CLIENT_ID" default:"cv-analysis"`

	SaramaConfig *sarama.Config `ignored:"true"`
}

// Enabled reports whether events must be shipped to kafka instead of stdout.
func (k kafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// NewSaramaConfig builds the producer configuration out of the kafka settings.
func (k kafkaConfig) NewSaramaConfig() (*sarama.Config, error) {
	if k.SaramaConfig != nil {
		return k.SaramaConfig, nil
	}

	cfg := sarama.NewConfig()
	cfg.ClientID = k.ClientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	if k.Version != "" {
		v, err := sarama.ParseKafkaVersion(k.Version)
		if err != nil {
			return nil, err
		}
		cfg.Version = v
	}
	return cfg, nil
}

func New() (*Config, error) {
	if singleConfig == nil {
		cfg, err := NewDefault()
		if err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// NewDefault returns a fresh configuration read from the environment. It never touches the
// process wide configuration returned by New.
func NewDefault() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
