package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/logging"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
	"go.uber.org/zap"
)

// Security protocols accepted in KafkaConfig.SecurityProtocol.
const (
	ProtocolPlaintext     = "PLAINTEXT"
	ProtocolSSL           = "SSL"
	ProtocolSASLPlaintext = "SASL_PLAINTEXT"
	ProtocolSASLSSL       = "SASL_SSL"
)

// SASL mechanisms accepted in KafkaConfig.SASLMechanism.
const (
	MechanismPlain       = "PLAIN"
	MechanismScramSHA256 = "SCRAM-SHA-256"
	MechanismScramSHA512 = "SCRAM-SHA-512"
)

// OriginHeader carries the publishing process identity.
const OriginHeader = "origin"

const (
	defaultSessionTimeout = 4500 * time.Millisecond
	defaultDialTimeout    = 10 * time.Second
)

// KafkaConfig holds connection parameters for a Kafka cluster.
type KafkaConfig struct {
	Brokers          []string
	GroupID          string
	SecurityProtocol string
	SASLMechanism    string
	Username         string
	Password         string
	SessionTimeout   time.Duration
	DialTimeout      time.Duration
}

// UsesSASL reports whether the protocol authenticates with SASL.
func (c KafkaConfig) UsesSASL() bool {
	p := strings.ToUpper(c.SecurityProtocol)
	return p == ProtocolSASLPlaintext || p == ProtocolSASLSSL
}

// UsesTLS reports whether the protocol encrypts the connection.
func (c KafkaConfig) UsesTLS() bool {
	p := strings.ToUpper(c.SecurityProtocol)
	return p == ProtocolSSL || p == ProtocolSASLSSL
}

// Validate checks the protocol and mechanism names.
func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: no bootstrap servers")
	}
	if strings.TrimSpace(c.GroupID) == "" {
		return errors.New("kafka: group id is required")
	}
	switch strings.ToUpper(c.SecurityProtocol) {
	case ProtocolPlaintext, ProtocolSSL, ProtocolSASLPlaintext, ProtocolSASLSSL:
	default:
		return fmt.Errorf("kafka: unsupported security protocol %q", c.SecurityProtocol)
	}
	if c.UsesSASL() {
		if _, err := c.mechanism(); err != nil {
			return err
		}
	}
	return nil
}

func (c KafkaConfig) mechanism() (sasl.Mechanism, error) {
	switch strings.ToUpper(c.SASLMechanism) {
	case MechanismPlain:
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case MechanismScramSHA256:
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case MechanismScramSHA512:
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	default:
		return nil, fmt.Errorf("kafka: unsupported sasl mechanism %q", c.SASLMechanism)
	}
}

// Kafka is a Client backed by a Kafka cluster.
type Kafka struct {
	cfg    KafkaConfig
	dialer *kafka.Dialer
	writer *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
	closed  bool
}

// NewKafka validates cfg and prepares a client. No connection is attempted
// until the first publish or read.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = defaultSessionTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	var mech sasl.Mechanism
	if cfg.UsesSASL() {
		m, err := cfg.mechanism()
		if err != nil {
			return nil, err
		}
		mech = m
	}
	var tlsCfg *tls.Config
	if cfg.UsesTLS() {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	dialer := &kafka.Dialer{
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		SASLMechanism: mech,
		TLS:           tlsCfg,
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Transport: &kafka.Transport{
			DialTimeout: cfg.DialTimeout,
			SASL:        mech,
			TLS:         tlsCfg,
		},
		ErrorLogger: kafka.LoggerFunc(errorLogger("writer")),
	}
	return &Kafka{cfg: cfg, dialer: dialer, writer: writer}, nil
}

// Publish implements Publisher.
func (k *Kafka) Publish(ctx context.Context, rec Record) error {
	msg := kafka.Message{
		Topic: rec.Topic,
		Key:   []byte(rec.Key),
		Value: rec.Value,
		Time:  rec.Time,
	}
	if rec.Origin != "" {
		msg.Headers = []kafka.Header{{Key: OriginHeader, Value: []byte(rec.Origin)}}
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", rec.Topic, err)
	}
	return nil
}

// Subscribe implements Subscriber. The reader joins the configured consumer
// group and commits offsets as messages are read.
func (k *Kafka) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, ErrClosed
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.cfg.Brokers,
		GroupID:        k.cfg.GroupID,
		Topic:          topic,
		Dialer:         k.dialer,
		SessionTimeout: k.cfg.SessionTimeout,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
		ErrorLogger:    kafka.LoggerFunc(errorLogger("reader")),
	})
	k.readers = append(k.readers, reader)
	return &kafkaSubscription{reader: reader}, nil
}

// Close shuts the writer and every reader.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	readers := k.readers
	k.readers = nil
	k.mu.Unlock()

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := k.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type kafkaSubscription struct {
	reader *kafka.Reader
}

func (s *kafkaSubscription) Next(ctx context.Context) (Delivery, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return Delivery{}, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return Delivery{}, err
	}
	d := Delivery{
		Topic:     msg.Topic,
		Key:       string(msg.Key),
		Value:     msg.Value,
		Time:      msg.Time,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	for _, h := range msg.Headers {
		if h.Key == OriginHeader {
			d.Origin = string(h.Value)
		}
	}
	return d, nil
}

func (s *kafkaSubscription) Close() error {
	return s.reader.Close()
}

func errorLogger(component string) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		logging.Warn(fmt.Sprintf(format, args...), zap.String("component", "kafka-"+component))
	}
}
