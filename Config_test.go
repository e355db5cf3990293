package fridabind

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDecodeConfig(t *testing.T) {
	cfg, err := decodeConfig(environ([]string{
		"FRIDABIND_LOG_LEVEL=debug",
		"FRIDABIND_LOG_FORMAT=json",
		"FRIDABIND_RPC_TIMEOUT=5s",
		"FRIDABIND_MESSAGE_QUEUE_SIZE=16",
		"FRIDABIND_DEVICE_TIMEOUT=-1",
		"HOME=/root",
		"FRIDABIND_MALFORMED",
	}))
	if err != nil {
		t.Fatalf("decodeConfig: %v", err)
	}
	want := Config{
		LogLevel:         "debug",
		LogFormat:        "json",
		MessageQueueSize: 16,
		RPCTimeout:       5 * time.Second,
		DeviceTimeout:    -1,
	}
	if cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
}

func TestDecodeConfigDefaults(t *testing.T) {
	cfg, err := decodeConfig(environ(nil))
	if err != nil {
		t.Fatalf("decodeConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

func TestDecodeConfigInvalid(t *testing.T) {
	for _, env := range [][]string{
		{"FRIDABIND_LOG_LEVEL=chatty"},
		{"FRIDABIND_LOG_FORMAT=xml"},
		{"FRIDABIND_RPC_TIMEOUT=soon"},
		{"FRIDABIND_RPC_TIMEOUT=0s"},
		{"FRIDABIND_MESSAGE_QUEUE_SIZE=0"},
		{"FRIDABIND_MESSAGE_QUEUE_SIZE=many"},
	} {
		if _, err := decodeConfig(environ(env)); err == nil {
			t.Errorf("decodeConfig(%v) succeeded", env)
		}
	}
}

func TestConfigure(t *testing.T) {
	withFake(t)
	level := log.GetLevel()
	t.Cleanup(func() {
		log.SetLevel(level)
		log.SetFormatter(&logrus.TextFormatter{})
	})

	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	cfg.MessageQueueSize = 4
	if err := Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if log.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %s, want warn", log.GetLevel())
	}
	if got := currentConfig().MessageQueueSize; got != 4 {
		t.Errorf("MessageQueueSize = %d, want 4", got)
	}

	cfg.LogFormat = "yaml"
	if err := Configure(cfg); err == nil {
		t.Error("Configure accepted an invalid format")
	}
}
