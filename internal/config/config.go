package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "ECG"
	ConfigName = "ecgsegmenter"
)

// Keys understood by Load. Environment variables use the ECG_ prefix with
// dots and dashes replaced by underscores (e.g. ECG_RAW_DIR).
const (
	KeyRange     = "range"
	KeyChannel   = "channel"
	KeyClasses   = "classes"
	KeyRawDir    = "raw-dir"
	KeySampleDir = "sample-dir"
	KeyDBPath    = "db-path"
	KeyRdsamp    = "rdsamp"
	KeyRdann     = "rdann"
	KeyTimeout   = "fetch-timeout"
	KeyOverwrite = "overwrite"
	KeyLogLevel  = "log-level"
)

// flagKeys maps short CLI flag names onto configuration keys. Flags not
// listed bind under their own name.
var flagKeys = map[string]string{
	"raw":     KeyRawDir,
	"samples": KeySampleDir,
	"db":      KeyDBPath,
}

type Config struct {
	// Segmentation
	Range   int
	Channel int
	Classes int

	// Paths
	RawDir    string
	SampleDir string
	DBPath    string

	// WFDB tools
	Rdsamp       string
	Rdann        string
	FetchTimeout time.Duration

	Overwrite bool
	LogLevel  string
}

func Defaults() map[string]any {
	return map[string]any{
		KeyRange:     130,
		KeyChannel:   1,
		KeyClasses:   5,
		KeyRawDir:    filepath.Join("datasets", "raws"),
		KeySampleDir: filepath.Join("datasets", "samples"),
		KeyDBPath:    filepath.Join("datasets", "catalog.sqlite3"),
		KeyRdsamp:    "rdsamp",
		KeyRdann:     "rdann",
		KeyTimeout:   2 * time.Minute,
		KeyOverwrite: false,
		KeyLogLevel:  "info",
	}
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration with precedence flag > env > file > default.
// configFile may be empty, in which case ecgsegmenter.yaml is searched for in
// the working directory and ./config; a missing file is not an error. A .env
// file in the working directory is loaded first when present.
func Load(v *viper.Viper, configFile string, flags *pflag.FlagSet) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	if v == nil {
		v = New()
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok {
				key = f.Name
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Range:        v.GetInt(KeyRange),
		Channel:      v.GetInt(KeyChannel),
		Classes:      v.GetInt(KeyClasses),
		RawDir:       v.GetString(KeyRawDir),
		SampleDir:    v.GetString(KeySampleDir),
		DBPath:       v.GetString(KeyDBPath),
		Rdsamp:       v.GetString(KeyRdsamp),
		Rdann:        v.GetString(KeyRdann),
		FetchTimeout: v.GetDuration(KeyTimeout),
		Overwrite:    v.GetBool(KeyOverwrite),
		LogLevel:     v.GetString(KeyLogLevel),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Range <= 0 {
		return fmt.Errorf("range must be positive, got %d", c.Range)
	}
	if c.Channel < 1 {
		return fmt.Errorf("channel must be at least 1, got %d", c.Channel)
	}
	if c.Classes <= 0 {
		return fmt.Errorf("classes must be positive, got %d", c.Classes)
	}
	if c.RawDir == "" || c.SampleDir == "" {
		return errors.New("raw and sample directories must be set")
	}
	return nil
}
