package fridabind

import (
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const envPrefix = "FRIDABIND_"

type Config struct {
	// LogLevel is a logrus level name.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format"`
	// MessageQueueSize bounds the per-object queue between native signal
	// threads and the goroutine running handlers.
	MessageQueueSize int `mapstructure:"message_queue_size"`
	// RPCTimeout applies to Script.Call when the context has no deadline.
	RPCTimeout time.Duration `mapstructure:"rpc_timeout"`
	// DeviceTimeout is the timeout in milliseconds passed to device lookups
	// by the package level helpers. Zero means no waiting, -1 waits forever.
	DeviceTimeout int `mapstructure:"device_timeout"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:         "info",
		LogFormat:        "text",
		MessageQueueSize: 1000,
		RPCTimeout:       60 * time.Second,
		DeviceTimeout:    0,
	}
}

// LoadConfig builds a Config from DefaultConfig overridden by FRIDABIND_*
// environment variables, e.g. FRIDABIND_LOG_LEVEL=debug or
// FRIDABIND_RPC_TIMEOUT=5s.
func LoadConfig() (Config, error) {
	return decodeConfig(environ(os.Environ()))
}

func environ(kv []string) map[string]interface{} {
	vars := make(map[string]interface{})
	for _, e := range kv {
		k, v, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(k, envPrefix) {
			continue
		}
		vars[strings.ToLower(strings.TrimPrefix(k, envPrefix))] = v
	}
	return vars
}

func decodeConfig(vars map[string]interface{}) (cfg Config, err error) {
	cfg = DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return
	}
	if err = dec.Decode(vars); err != nil {
		err = xerrors.Errorf("decode config: %w", err)
		return
	}
	err = cfg.validate()
	return
}

func (cfg Config) validate() error {
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return xerrors.Errorf("log level: %w", err)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return xerrors.Errorf("log format %q: want text or json", cfg.LogFormat)
	}
	if cfg.MessageQueueSize < 1 {
		return xerrors.Errorf("message queue size %d: must be positive", cfg.MessageQueueSize)
	}
	if cfg.RPCTimeout <= 0 {
		return xerrors.Errorf("rpc timeout %s: must be positive", cfg.RPCTimeout)
	}
	return nil
}

// Configure applies cfg to the package logger and the registered driver.
func Configure(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{})
	}

	l, err := lib()
	if err != nil {
		return err
	}
	l.cfg.Store(&cfg)
	return nil
}

func currentConfig() Config {
	if l := current.Load(); l != nil {
		return l.config()
	}
	return DefaultConfig()
}
