// Package mqttbus subscribes to the home automation broker and hands every
// received message to a handler.
package mqttbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// Handler receives decoded messages. It runs on the subscriber's read
// goroutine and must not block.
type Handler func(topic string, p Payload)

// Dialer opens the transport to the broker.
type Dialer func(ctx context.Context, addr string) (io.ReadWriteCloser, error)

// Option configures the subscriber.
type Option func(*Subscriber)

// WithCredentials sets the broker username and password.
func WithCredentials(user, pass string) Option {
	return func(s *Subscriber) {
		s.user, s.pass = user, pass
	}
}

// WithKeepAlive sets the MQTT keepalive. Pings go out at half this period.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Subscriber) {
		s.keepAlive = d
	}
}

// WithBackoff sets the delay between reconnect attempts.
func WithBackoff(d time.Duration) Option {
	return func(s *Subscriber) {
		s.backoff = d
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(s *Subscriber) {
		s.dial = d
	}
}

// Subscriber keeps a session with the broker open, reconnecting as needed.
type Subscriber struct {
	addr      string
	clientID  string
	user      string
	pass      string
	topics    []string
	keepAlive time.Duration
	backoff   time.Duration
	timeout   time.Duration
	dial      Dialer
	handler   Handler
	log       *logger.Logger
}

// New creates a subscriber for topics on the broker at addr (host:port).
func New(addr, clientID string, topics []string, h Handler, log *logger.Logger, opts ...Option) *Subscriber {
	s := &Subscriber{
		addr:      addr,
		clientID:  clientID,
		topics:    topics,
		keepAlive: 60 * time.Second,
		backoff:   2 * time.Second,
		timeout:   10 * time.Second,
		dial:      dialTCP,
		handler:   h,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dialTCP(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// Run connects and dispatches messages until ctx is cancelled. Broken
// sessions are retried after the backoff.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("session with %s ended: %v (retrying in %s)", s.addr, err, s.backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.backoff):
		}
	}
}

func (s *Subscriber) session(ctx context.Context) error {
	conn, err := s.dial(ctx, s.addr)
	if err != nil {
		return fmt.Errorf("dialing: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 4096)},
		OnPub: func(_ mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			body, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			topic := string(varPub.TopicName)
			s.log.Debug("message on %s (%d bytes)", topic, len(body))
			s.handler(topic, Decode(body))
			return nil
		},
	})

	if err := s.connect(client, conn); err != nil {
		return err
	}
	s.log.Info("connected to %s as %s", s.addr, s.clientID)

	readErr := make(chan error, 1)
	go func() {
		for {
			if err := client.HandleNext(); err != nil {
				readErr <- err
				return
			}
			if !client.IsConnected() {
				readErr <- client.Err()
				return
			}
		}
	}()

	if err := s.subscribe(client); err != nil {
		return err
	}

	ping := time.NewTicker(s.keepAlive / 2)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			client.Disconnect(errors.New("shutting down"))
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("reading: %w", err)
		case <-ping.C:
			if err := client.StartPing(); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (s *Subscriber) connect(client *mqtt.Client, conn io.ReadWriteCloser) error {
	var vc mqtt.VariablesConnect
	vc.SetDefaultMQTT([]byte(s.clientID))
	vc.KeepAlive = uint16(s.keepAlive / time.Second)
	if s.user != "" {
		vc.Username = []byte(s.user)
		if s.pass != "" {
			vc.Password = []byte(s.pass)
		}
	}

	if nc, ok := conn.(net.Conn); ok {
		nc.SetDeadline(time.Now().Add(s.timeout))
		defer nc.SetDeadline(time.Time{})
	}

	if err := client.StartConnect(conn, &vc); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	for !client.IsConnected() {
		if err := client.HandleNext(); err != nil {
			return fmt.Errorf("mqtt connack: %w", err)
		}
	}
	return nil
}

func (s *Subscriber) subscribe(client *mqtt.Client) error {
	reqs := make([]mqtt.SubscribeRequest, 0, len(s.topics))
	for _, t := range s.topics {
		if t == "" {
			continue
		}
		reqs = append(reqs, mqtt.SubscribeRequest{TopicFilter: []byte(t), QoS: mqtt.QoS0})
	}
	if len(reqs) == 0 {
		return nil
	}

	err := client.StartSubscribe(mqtt.VariablesSubscribe{
		PacketIdentifier: 1,
		TopicFilters:     reqs,
	})
	if err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}
	s.log.Info("subscribed to %d topics", len(reqs))
	return nil
}
