package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/backend"
	"github.com/atomicstack/wiggle-chat/internal/broker"
	"github.com/atomicstack/wiggle-chat/internal/data/dispatcher"
	"github.com/atomicstack/wiggle-chat/internal/logging"
	"github.com/atomicstack/wiggle-chat/internal/logging/events"
	"github.com/atomicstack/wiggle-chat/internal/metrics"
	"github.com/atomicstack/wiggle-chat/internal/mirror"
	"github.com/atomicstack/wiggle-chat/internal/state"
	"github.com/atomicstack/wiggle-chat/internal/storage"
	"github.com/atomicstack/wiggle-chat/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	seedTimeout     = 10 * time.Second
	shutdownTimeout = 3 * time.Second
)

// Config describes user-provided application options.
type Config struct {
	Kafka         broker.KafkaConfig
	Topic         string
	DBPath        string
	HistorySize   int
	Tick          time.Duration
	DispatchLimit int64
	ExcludeSelf   bool
	MirrorAddr    string
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	out := c
	out.Kafka.Brokers = append([]string(nil), c.Kafka.Brokers...)
	if out.Kafka.Password != "" {
		out.Kafka.Password = "REDACTED"
	}
	return out
}

// Deps lets callers supply collaborators. Nil fields are built from Config.
type Deps struct {
	Store   storage.Store
	Broker  broker.Client
	Program func(tea.Model, ...tea.ProgramOption) Runner
}

// Runner is the part of tea.Program Run needs.
type Runner interface {
	Run() (tea.Model, error)
}

// Run bootstraps and executes the Bubble Tea program.
func Run(cfg Config) error {
	return RunWith(context.Background(), cfg, Deps{})
}

// RunWith is Run with injectable collaborators.
func RunWith(ctx context.Context, cfg Config, deps Deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := deps.Store
	if store == nil {
		sqlite, err := storage.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		store = sqlite
	}
	defer store.Close()

	history := state.NewHistory(cfg.HistorySize)
	if err := seed(ctx, store, history); err != nil {
		return err
	}

	client := deps.Broker
	if client == nil {
		kafka, err := broker.NewKafka(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		client = kafka
	}
	defer client.Close()

	m := metrics.New()
	var ln net.Listener
	if cfg.MirrorAddr != "" {
		var err error
		ln, err = net.Listen("tcp", cfg.MirrorAddr)
		if err != nil {
			return fmt.Errorf("bind mirror %s: %w", cfg.MirrorAddr, err)
		}
	}

	origin := uuid.NewString()
	inbox := backend.NewMailbox()
	consumer := backend.NewConsumer(backend.ConsumerConfig{
		Topic:       cfg.Topic,
		Origin:      origin,
		ExcludeSelf: cfg.ExcludeSelf,
		Metrics:     m,
	}, client, inbox)
	defer consumer.Wait()
	defer consumer.Stop()

	effects, stopEffects := context.WithCancel(context.Background())
	defer stopEffects()
	d := dispatcher.New(dispatcher.Config{
		Topic:   cfg.Topic,
		Origin:  origin,
		Limit:   cfg.DispatchLimit,
		Metrics: m,
		Base:    effects,
	}, store, client)

	model := ui.NewModel(ui.Options{
		History:    history,
		Inbox:      inbox,
		Dispatcher: d,
		Metrics:    m,
		Tick:       cfg.Tick,
		Topic:      cfg.Topic,
	})

	newProgram := deps.Program
	if newProgram == nil {
		newProgram = func(model tea.Model, opts ...tea.ProgramOption) Runner {
			return tea.NewProgram(model, opts...)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if ln != nil {
		srv := mirror.New(store, m)
		g.Go(func() error {
			return srv.Serve(gctx, ln)
		})
	}
	g.Go(func() error {
		defer cancel()
		program := newProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	err := g.Wait()
	events.App.Stop(stopReason(err))
	waitForDispatch(d)
	stopEffects()
	return err
}

func seed(ctx context.Context, store storage.Store, history *state.History) error {
	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()
	msgs, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	history.Append(msgs...)
	history.Trim()
	events.App.Seeded(len(msgs), history.Len())
	return nil
}

// waitForDispatch gives in-flight effects a moment to land before storage
// and the broker are closed.
func waitForDispatch(d *dispatcher.Dispatcher) {
	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logging.Warn("exiting with dispatches in flight", zap.Duration("waited", shutdownTimeout))
	}
}

func stopReason(err error) string {
	if err != nil {
		return err.Error()
	}
	return "quit"
}
