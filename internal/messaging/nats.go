package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// NATSClient handles NATS messaging operations
type NATSClient struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	encoder *nats.EncodedConn
	logger  *logrus.Entry
	cfg     *config.NATSConfig

	subs   map[string]*nats.Subscription
	subsMu sync.RWMutex
}

// NewNATSClient creates a new NATS client
func NewNATSClient(cfg *config.NATSConfig, logger *logrus.Logger) (*NATSClient, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	encoder, err := nats.NewEncodedConn(conn, nats.JSON_ENCODER)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create encoded connection: %w", err)
	}

	nc := &NATSClient{
		conn:    conn,
		js:      js,
		encoder: encoder,
		logger:  logger.WithField("component", "nats"),
		cfg:     cfg,
		subs:    make(map[string]*nats.Subscription),
	}

	if err := nc.initializeStreams(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	return nc, nil
}

// Close closes the NATS connection
func (nc *NATSClient) Close() error {
	nc.subsMu.Lock()
	for _, sub := range nc.subs {
		sub.Unsubscribe()
	}
	nc.subs = make(map[string]*nats.Subscription)
	nc.subsMu.Unlock()

	nc.encoder.Close()
	nc.conn.Close()
	return nil
}

// IsConnected checks if NATS is connected
func (nc *NATSClient) IsConnected() bool {
	return nc.conn.IsConnected()
}

// initializeStreams creates JetStream streams
func (nc *NATSClient) initializeStreams() error {
	// Candle stream for closed bars from the exchange stream
	_, err := nc.js.AddStream(&nats.StreamConfig{
		Name:     "CANDLES",
		Subjects: []string{"candles.>"},
		Storage:  nats.MemoryStorage,
		MaxAge:   24 * time.Hour,
		MaxMsgs:  1000000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create CANDLES stream: %w", err)
	}

	// Profile stream for computed volume profile levels
	_, err = nc.js.AddStream(&nats.StreamConfig{
		Name:     "PROFILES",
		Subjects: []string{"profiles.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
		MaxMsgs:  100000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create PROFILES stream: %w", err)
	}

	// Signal stream for trade signals
	_, err = nc.js.AddStream(&nats.StreamConfig{
		Name:     "SIGNALS",
		Subjects: []string{"signals.>"},
		Storage:  nats.MemoryStorage,
		MaxAge:   24 * time.Hour,
		MaxMsgs:  100000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create SIGNALS stream: %w", err)
	}

	return nil
}

// Candle operations

// PublishCandle publishes a closed candle
func (nc *NATSClient) PublishCandle(candle *models.Candle) error {
	subject := fmt.Sprintf("candles.%s", subjectToken(candle.Symbol))
	return nc.publishJS(subject, candle)
}

// SubscribeCandles subscribes to closed candle updates
func (nc *NATSClient) SubscribeCandles(handler func(*models.Candle)) error {
	sub, err := nc.encoder.Subscribe("candles.>", func(candle *models.Candle) {
		handler(candle)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to candles: %w", err)
	}

	nc.track("candles.>", sub)
	return nil
}

// Profile operations

// PublishProfile publishes computed volume profile levels
func (nc *NATSClient) PublishProfile(vp *models.VolumeProfile) error {
	subject := fmt.Sprintf("profiles.%s", subjectToken(vp.Symbol))
	return nc.publishJS(subject, vp)
}

// SubscribeProfiles subscribes to volume profile updates
func (nc *NATSClient) SubscribeProfiles(handler func(*models.VolumeProfile)) error {
	sub, err := nc.encoder.Subscribe("profiles.>", func(vp *models.VolumeProfile) {
		handler(vp)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to profiles: %w", err)
	}

	nc.track("profiles.>", sub)
	return nil
}

// Signal operations

// PublishSignal publishes a trade signal
func (nc *NATSClient) PublishSignal(sig *models.Signal) error {
	subject := fmt.Sprintf("signals.%s", subjectToken(sig.Symbol))
	return nc.publishJS(subject, sig)
}

// SubscribeSignals subscribes to trade signal updates
func (nc *NATSClient) SubscribeSignals(handler func(*models.Signal)) error {
	sub, err := nc.encoder.Subscribe("signals.>", func(sig *models.Signal) {
		handler(sig)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to signals: %w", err)
	}

	nc.track("signals.>", sub)
	return nil
}

// publishJS publishes to JetStream and waits for the ack with a timeout
func (nc *NATSClient) publishJS(subject string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	future, err := nc.js.PublishAsync(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	select {
	case <-future.Ok():
		return nil
	case err := <-future.Err():
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	case <-time.After(2 * time.Second):
		return fmt.Errorf("publish timeout for subject %s", subject)
	}
}

func (nc *NATSClient) track(subject string, sub *nats.Subscription) {
	nc.subsMu.Lock()
	nc.subs[subject] = sub
	nc.subsMu.Unlock()
}

// subjectToken strips characters NATS treats as separators from a symbol
func subjectToken(symbol string) string {
	out := make([]byte, 0, len(symbol))
	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		if c == '/' || c == '.' || c == ' ' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
