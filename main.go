package main

import (
	"fmt"
	"os"

	"github.com/atomicstack/wiggle-chat/internal/app"
	"github.com/atomicstack/wiggle-chat/internal/config"
	"github.com/atomicstack/wiggle-chat/internal/logging"
	"github.com/atomicstack/wiggle-chat/internal/logging/events"
	"golang.org/x/term"
)

func main() {
	runtimeCfg := config.MustLoad()
	if err := config.Validate(runtimeCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	logging.Configure(runtimeCfg.Logging.FilePath)
	logging.SetTraceEnabled(runtimeCfg.Logging.Trace)

	traceStartup(runtimeCfg)

	err := app.Run(runtimeCfg.App)
	logging.Error(err)
	logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func traceStartup(cfg config.Config) {
	events.App.Start(startupTracePayload(cfg))
}

// startupTracePayload records what the session started with. The SASL
// password is redacted.
func startupTracePayload(cfg config.Config) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags)+2)
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	flags["trace"] = cfg.Logging.Trace
	flags["logFile"] = cfg.Logging.FilePath
	redacted := cfg
	redacted.App = cfg.App.Redacted()
	payload := map[string]interface{}{
		"argv":     cfg.Args,
		"flags":    flags,
		"config":   redacted,
		"terminal": probeTerminal(os.Stdin.Fd(), os.Stdout.Fd()),
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	}
	return payload
}

// terminalInfo says whether the chat UI has a terminal to draw on.
type terminalInfo struct {
	InputTTY  bool   `json:"input_tty"`
	OutputTTY bool   `json:"output_tty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Error     string `json:"error,omitempty"`
}

func probeTerminal(in, out uintptr) terminalInfo {
	info := terminalInfo{
		InputTTY:  term.IsTerminal(int(in)),
		OutputTTY: term.IsTerminal(int(out)),
	}
	if !info.OutputTTY {
		return info
	}
	width, height, err := term.GetSize(int(out))
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Width, info.Height = width, height
	return info
}
