package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func baseEnv() []string {
	return []string{
		"BOOTSTRAP_SERVER=broker-1:9092, broker-2:9092",
		"GROUP_ID=wiggle",
		"SECURITY_PROTOCOL=PLAINTEXT",
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	cfg, err := LoadArgs(nil, baseEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	app := cfg.App
	if len(app.Kafka.Brokers) != 2 || app.Kafka.Brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers %v", app.Kafka.Brokers)
	}
	if app.Topic != "wiggle-messages" || app.DBPath != "wiggle-chat.db" {
		t.Fatalf("unexpected defaults %+v", app)
	}
	if app.HistorySize != 10 || app.Tick != 200*time.Millisecond || app.DispatchLimit != 64 {
		t.Fatalf("unexpected numeric defaults %+v", app)
	}
	if !app.ExcludeSelf || app.MirrorAddr != "" {
		t.Fatalf("unexpected feature defaults %+v", app)
	}
	if cfg.Logging.FilePath != "wiggle-chat.log" || cfg.Logging.Trace {
		t.Fatalf("unexpected logging defaults %+v", cfg.Logging)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadArgsFlagsOverrideEnv(t *testing.T) {
	env := append(baseEnv(), "CHAT_LOG_FILE=env.log", "CHAT_TRACE=false")
	cfg, err := LoadArgs([]string{"-log-file", "flag.log", "-trace"}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.FilePath != "flag.log" || !cfg.Logging.Trace {
		t.Fatalf("expected flag overrides, got %+v", cfg.Logging)
	}
	if cfg.Flags["trace"] != "true" || cfg.Flags["logFile"] != "flag.log" {
		t.Fatalf("unexpected flag map %v", cfg.Flags)
	}
}

func TestLoadArgsRejectsPositionalArguments(t *testing.T) {
	if _, err := LoadArgs([]string{"extra"}, baseEnv()); err == nil {
		t.Fatalf("expected error for positional argument")
	}
}

func TestLoadArgsRejectsBadNumbers(t *testing.T) {
	for _, entry := range []string{"CHAT_HISTORY_SIZE=ten", "CHAT_TICK_MS=0", "CHAT_DISPATCH_LIMIT=-1"} {
		if _, err := LoadArgs(nil, append(baseEnv(), entry)); err == nil {
			t.Fatalf("expected error for %s", entry)
		}
	}
}

func TestValidateReportsAllMissing(t *testing.T) {
	cfg, err := LoadArgs(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Validate(cfg)
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	for _, name := range []string{"BOOTSTRAP_SERVER", "GROUP_ID", "SASL_MECHANISM", "SASL_USERNAME", "SASL_PASSWORD"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %s in %q", name, err.Error())
		}
	}
}

func TestValidateSASL(t *testing.T) {
	env := []string{
		"BOOTSTRAP_SERVER=b:9092",
		"GROUP_ID=g",
		"SASL_MECHANISM=plain",
		"SASL_USERNAME=u",
		"SASL_PASSWORD=p",
	}
	cfg, err := LoadArgs(nil, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.Kafka.SecurityProtocol != "SASL_SSL" || cfg.App.Kafka.SASLMechanism != "PLAIN" {
		t.Fatalf("unexpected kafka config %+v", cfg.App.Kafka)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid SASL config, got %v", err)
	}

	cfg.App.Kafka.SASLMechanism = "GSSAPI"
	if err := Validate(cfg); err == nil || errors.Is(err, ErrMissing) {
		t.Fatalf("expected unsupported mechanism error, got %v", err)
	}
}

func TestEnvFileFillsUnsetVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.env")
	content := "BOOTSTRAP_SERVER=file:9092\nGROUP_ID=from-file\nSECURITY_PROTOCOL=PLAINTEXT\nCHAT_TOPIC=file-topic\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	cfg, err := LoadArgs([]string{"-env-file=" + path}, []string{"CHAT_TOPIC=process-topic"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.Kafka.GroupID != "from-file" {
		t.Fatalf("expected group from file, got %q", cfg.App.Kafka.GroupID)
	}
	if cfg.App.Topic != "process-topic" {
		t.Fatalf("process environment must win, got %q", cfg.App.Topic)
	}
	if cfg.EnvFile != path {
		t.Fatalf("expected env file %q, got %q", path, cfg.EnvFile)
	}
}

func TestExplicitEnvFileMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.env")
	if _, err := LoadArgs([]string{"-env-file", missing}, baseEnv()); err == nil {
		t.Fatalf("expected error for missing explicit env file")
	}
}

func TestEnvFileArg(t *testing.T) {
	cases := []struct {
		args     []string
		path     string
		explicit bool
	}{
		{nil, ".env", false},
		{[]string{"-env-file", "a.env"}, "a.env", true},
		{[]string{"--env-file=b.env"}, "b.env", true},
		{[]string{"-trace", "--", "-env-file", "c.env"}, ".env", false},
	}
	for _, tc := range cases {
		path, explicit := envFileArg(tc.args)
		if path != tc.path || explicit != tc.explicit {
			t.Fatalf("envFileArg(%v) = %q, %v; want %q, %v", tc.args, path, explicit, tc.path, tc.explicit)
		}
	}
}
