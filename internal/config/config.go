package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veckatimest/uniqipgo/internal/fanout"
	"github.com/Veckatimest/uniqipgo/internal/ipstore"
)

const EnvPrefix = "UNIQIP"

type Config struct {
	File        string `mapstructure:"file"`
	Store       string `mapstructure:"store"`
	Workers     int    `mapstructure:"workers"`
	BatchSize   int    `mapstructure:"batch_size"`
	MaxLine     int    `mapstructure:"max_line"`
	OnError     string `mapstructure:"on_error"`
	MaxLogged   int    `mapstructure:"max_logged"`
	Format      string `mapstructure:"format"`
	Progress    bool   `mapstructure:"progress"`
	CPUProfile  string `mapstructure:"cpu_profile"`
	HeapProfile string `mapstructure:"heap_profile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("file", "ip-list.txt")
	v.SetDefault("store", string(ipstore.KindBitmap))
	v.SetDefault("workers", runtime.GOMAXPROCS(0))
	v.SetDefault("batch_size", fanout.RAW_BATCH_SIZE)
	v.SetDefault("max_line", fanout.BYTES_500K)
	v.SetDefault("on_error", fanout.PolicySkip.String())
	v.SetDefault("max_logged", fanout.MAX_LOGGED)
	v.SetDefault("format", "text")
	v.SetDefault("progress", false)
	v.SetDefault("cpu_profile", "")
	v.SetDefault("heap_profile", "")
}

// Load reads defaults, then the optional config file at path, then UNIQIP_*
// environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.File == "" {
		errs = append(errs, errors.New("file must be set"))
	}
	if _, err := ipstore.ParseKind(c.Store); err != nil {
		errs = append(errs, err)
	}
	if _, err := fanout.ParsePolicy(c.OnError); err != nil {
		errs = append(errs, err)
	}
	if c.Format != "text" && c.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown format %q, expected text or json", c.Format))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.MaxLine < 16 {
		errs = append(errs, fmt.Errorf("max_line must be at least 16, got %d", c.MaxLine))
	}
	if c.MaxLogged < 0 {
		errs = append(errs, fmt.Errorf("max_logged must not be negative, got %d", c.MaxLogged))
	}

	return errors.Join(errs...)
}

// Options converts the ingestion part of c. It assumes c has been validated.
func (c Config) Options() fanout.Options {
	policy, _ := fanout.ParsePolicy(c.OnError)

	return fanout.Options{
		Workers:   c.Workers,
		BatchSize: c.BatchSize,
		MaxLine:   c.MaxLine,
		Policy:    policy,
		MaxLogged: c.MaxLogged,
	}
}
