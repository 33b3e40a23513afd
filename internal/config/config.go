package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/app"
	"github.com/atomicstack/wiggle-chat/internal/broker"
	"github.com/joho/godotenv"
)

// ErrMissing is wrapped by Validate when required variables are unset.
var ErrMissing = errors.New("missing required configuration")

// Config captures runtime configuration for the application.
type Config struct {
	App     app.Config
	Logging Logging
	EnvFile string
	Flags   map[string]string
	Args    []string
}

type Logging struct {
	FilePath string
	Trace    bool
}

const (
	envBootstrap     = "BOOTSTRAP_SERVER"
	envGroupID       = "GROUP_ID"
	envProtocol      = "SECURITY_PROTOCOL"
	envMechanism     = "SASL_MECHANISM"
	envUsername      = "SASL_USERNAME"
	envPassword      = "SASL_PASSWORD"
	envTopic         = "CHAT_TOPIC"
	envDBPath        = "CHAT_DB_PATH"
	envHistorySize   = "CHAT_HISTORY_SIZE"
	envTickMS        = "CHAT_TICK_MS"
	envDispatchLimit = "CHAT_DISPATCH_LIMIT"
	envExcludeSelf   = "CHAT_EXCLUDE_SELF"
	envMirrorAddr    = "CHAT_MIRROR_ADDR"
	envLogFile       = "CHAT_LOG_FILE"
	envTrace         = "CHAT_TRACE"
)

const (
	defaultEnvFile  = ".env"
	defaultTopic    = "wiggle-messages"
	defaultDBPath   = "wiggle-chat.db"
	defaultLogFile  = "wiggle-chat.log"
	defaultHistory  = 10
	defaultTickMS   = 200
	defaultDispatch = 64
	defaultProtocol = broker.ProtocolSASLSSL
	flagSetName     = "wiggle-chat"
	envFileFlagName = "env-file"
	logFileFlagName = "log-file"
	traceFlagName   = "trace"
)

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs allows tests to supply specific args/environment. Values from the
// dotenv file only fill variables absent from environ.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	envFile, explicit := envFileArg(args)
	if err := mergeDotenv(env, envFile, explicit); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet(flagSetName, flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	fs.String(envFileFlagName, envFile, "dotenv file consulted for unset variables")
	logFile := fs.String(logFileFlagName, envOrDefault(env, envLogFile, defaultLogFile), "path to the log file")
	trace := fs.Bool(traceFlagName, envOrBool(env, envTrace, false), "enable verbose JSON trace logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	history, err := envInt(env, envHistorySize, defaultHistory)
	if err != nil {
		return Config{}, err
	}
	tickMS, err := envInt(env, envTickMS, defaultTickMS)
	if err != nil {
		return Config{}, err
	}
	limit, err := envInt(env, envDispatchLimit, defaultDispatch)
	if err != nil {
		return Config{}, err
	}

	appCfg := app.Config{
		Kafka: broker.KafkaConfig{
			Brokers:          splitList(env[envBootstrap]),
			GroupID:          strings.TrimSpace(env[envGroupID]),
			SecurityProtocol: strings.ToUpper(envOrDefault(env, envProtocol, defaultProtocol)),
			SASLMechanism:    strings.ToUpper(strings.TrimSpace(env[envMechanism])),
			Username:         env[envUsername],
			Password:         env[envPassword],
		},
		Topic:         envOrDefault(env, envTopic, defaultTopic),
		DBPath:        envOrDefault(env, envDBPath, defaultDBPath),
		HistorySize:   history,
		Tick:          time.Duration(tickMS) * time.Millisecond,
		DispatchLimit: int64(limit),
		ExcludeSelf:   envOrBool(env, envExcludeSelf, true),
		MirrorAddr:    strings.TrimSpace(env[envMirrorAddr]),
	}

	cfg := Config{
		App: appCfg,
		Logging: Logging{
			FilePath: *logFile,
			Trace:    *trace,
		},
		EnvFile: envFile,
		Flags: map[string]string{
			"envFile": envFile,
			"logFile": *logFile,
			"trace":   strconv.FormatBool(*trace),
		},
		Args: append([]string(nil), args...),
	}

	return cfg, nil
}

// envFileArg finds -env-file ahead of the full parse, because its contents
// feed the defaults of every other setting.
func envFileArg(args []string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if value, ok := strings.CutPrefix(name, envFileFlagName+"="); ok {
			return value, true
		}
		if name == envFileFlagName && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return defaultEnvFile, false
}

func mergeDotenv(env map[string]string, path string, explicit bool) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	for k, v := range values {
		if _, ok := env[k]; !ok {
			env[k] = v
		}
	}
	return nil
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func envInt(env map[string]string, key string, fallback int) (int, error) {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, v)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be > 0 (got %d)", key, parsed)
	}
	return parsed, nil
}

func envOrBool(env map[string]string, key string, fallback bool) bool {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate ensures required minimum configuration is present. Every missing
// variable is reported in one error wrapping ErrMissing.
func Validate(cfg Config) error {
	k := cfg.App.Kafka
	var missing []string
	if len(k.Brokers) == 0 {
		missing = append(missing, envBootstrap)
	}
	if k.GroupID == "" {
		missing = append(missing, envGroupID)
	}
	if k.UsesSASL() {
		if k.SASLMechanism == "" {
			missing = append(missing, envMechanism)
		}
		if k.Username == "" {
			missing = append(missing, envUsername)
		}
		if k.Password == "" {
			missing = append(missing, envPassword)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(cfg.App.Topic) == "" {
		return fmt.Errorf("%s must not be empty", envTopic)
	}
	return k.Validate()
}
