package config

import (
	"fmt"
	"time"

	"github.com/SeaCloudHub/objdetect/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

type Config struct {
	AppEnv         string        `envconfig:"ENV" default:"development"`
	Port           int           `envconfig:"PORT" default:"5000" validate:"min=1,max=65535"`
	SecretKey      string        `envconfig:"SECRET_KEY"`
	Debug          bool          `envconfig:"DEBUG"`
	SentryDSN      string        `envconfig:"SENTRY_DSN"`
	AllowOrigins   string        `envconfig:"ALLOW_ORIGINS"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" validate:"min=0"`

	Upload   UploadConfig   `envconfig:"UPLOAD"`
	Detector DetectorConfig `envconfig:"DETECTOR"`
	Redis    RedisConfig    `envconfig:"REDIS"`

	// GeneratedSecret is set when SecretKey was not configured and a random
	// one was generated for this process.
	GeneratedSecret bool `ignored:"true"`
}

type UploadConfig struct {
	// MaxSize is the upload ceiling in bytes, 0 disables the limit.
	MaxSize int64 `envconfig:"MAX_SIZE" default:"10485760" validate:"min=0"`
	// MaxPixels bounds width x height of a decoded image, 0 disables the
	// check. The default matches PIL's MAX_IMAGE_PIXELS.
	MaxPixels int64 `envconfig:"MAX_PIXELS" default:"89478485" validate:"min=0"`
}

type DetectorConfig struct {
	Backend           string        `envconfig:"BACKEND" default:"onnx" validate:"oneof=onnx remote"`
	ModelPath         string        `envconfig:"MODEL_PATH" default:"best.onnx"`
	LabelsPath        string        `envconfig:"LABELS_PATH"`
	LibraryPath       string        `envconfig:"LIBRARY_PATH"`
	InferenceURL      string        `envconfig:"INFERENCE_URL" validate:"required_if=Backend remote"`
	InferenceTimeout  time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"30s"`
	InputSize         int           `envconfig:"INPUT_SIZE" default:"640" validate:"min=32,max=4096"`
	Confidence        float32       `envconfig:"CONFIDENCE" default:"0.5" validate:"gt=0,lte=1"`
	IOU               float32       `envconfig:"IOU" default:"0.7" validate:"gt=0,lte=1"`
	MaxDetections     int           `envconfig:"MAX_DETECTIONS" default:"300" validate:"min=1,max=1000"`
	PoolSize          int           `envconfig:"POOL_SIZE" validate:"min=0,max=64"`
	Lazy              bool          `envconfig:"LAZY"`
	RequireDetections bool          `envconfig:"REQUIRE_DETECTIONS"`
	JPEGQuality       int           `envconfig:"JPEG_QUALITY" default:"75" validate:"min=1,max=100"`
}

type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB"`
	Channel  string `envconfig:"CHANNEL" default:"detections"`
}

func LoadConfig() (*Config, error) {
	// .env is optional, real environment variables take precedence.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.SecretKey == "" {
		secret, err := gonanoid.New(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret key: %w", err)
		}

		cfg.SecretKey = secret
		cfg.GeneratedSecret = true
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.Validate().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// BodyLimit is the request body ceiling derived from the upload limit,
// leaving room for the multipart envelope. Empty means unbounded.
func (c *Config) BodyLimit() string {
	if c.Upload.MaxSize <= 0 {
		return ""
	}

	return fmt.Sprintf("%dK", (c.Upload.MaxSize+(1<<20))/1024)
}
