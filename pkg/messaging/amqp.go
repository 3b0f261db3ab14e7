package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"chatlytics-server/pkg/analytics"
)

// AnalysisEvent is the message published after a completed analysis.
type AnalysisEvent struct {
	ConversationID string                 `json:"conversation_id"`
	Document       *analytics.Document    `json:"document"`
	Timestamp      time.Time              `json:"timestamp"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// AMQPConfig holds AMQP client configuration
type AMQPConfig struct {
	URL          string
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Durable      bool
	AutoDelete   bool
}

// AMQPClient handles AMQP connections and event publishing. It satisfies
// analytics.EventSink.
type AMQPClient struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
	stopChan  chan struct{}
}

// NewAMQPClient creates a new AMQP client
func NewAMQPClient(logger *logrus.Logger, config AMQPConfig) *AMQPClient {
	if config.RoutingKey == "" {
		config.RoutingKey = config.QueueName
	}
	config.Durable = true     // Default to durable queues
	config.AutoDelete = false // Default to persistent queues

	return &AMQPClient{
		logger:   logger,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Connect establishes a connection to the AMQP server
func (c *AMQPClient) Connect() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	// Check if already connected
	if c.connected {
		return nil
	}

	if c.config.URL == "" || c.config.QueueName == "" {
		c.logger.Warn("AMQP_URL or AMQP_QUEUE_NAME not set, AMQP functionality will be disabled")
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	// Create a connection timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Use a separate goroutine with the timeout context
	connChan := make(chan struct {
		conn *amqp.Connection
		err  error
	}, 1)

	go func() {
		conn, err := amqp.Dial(c.config.URL)
		select {
		case <-ctx.Done():
			// Context already timed out, clean up and return
			if conn != nil {
				conn.Close()
			}
			return
		case connChan <- struct {
			conn *amqp.Connection
			err  error
		}{conn, err}:
		}
	}()

	// Wait for connection with timeout
	var conn *amqp.Connection
	var err error
	select {
	case result := <-connChan:
		conn = result.conn
		err = result.err
	case <-ctx.Done():
		return fmt.Errorf("connection to AMQP server timed out after 5 seconds")
	}

	if err != nil {
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	c.conn = conn

	// Create channel with timeout
	channelChan := make(chan struct {
		channel *amqp.Channel
		err     error
	}, 1)

	go func() {
		channel, err := conn.Channel()
		channelChan <- struct {
			channel *amqp.Channel
			err     error
		}{channel, err}
	}()

	var channel *amqp.Channel
	select {
	case result := <-channelChan:
		channel = result.channel
		err = result.err
	case <-time.After(3 * time.Second):
		conn.Close()
		return fmt.Errorf("channel creation timed out after 3 seconds")
	}

	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	c.channel = channel

	// Declare queue with timeout
	queueChan := make(chan struct {
		queue amqp.Queue
		err   error
	}, 1)

	go func() {
		queue, err := channel.QueueDeclare(
			c.config.QueueName,
			c.config.Durable,    // Durable
			c.config.AutoDelete, // Delete when unused
			false,               // Exclusive
			false,               // No-wait
			nil,                 // Arguments
		)
		queueChan <- struct {
			queue amqp.Queue
			err   error
		}{queue, err}
	}()

	select {
	case result := <-queueChan:
		err = result.err
	case <-time.After(3 * time.Second):
		channel.Close()
		conn.Close()
		return fmt.Errorf("queue declaration timed out after 3 seconds")
	}

	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	// Set up channel Qos to prevent overloading the server
	err = channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to set QoS on AMQP channel, continuing anyway")
	}

	c.connected = true
	c.logger.WithFields(logrus.Fields{
		"url":   c.config.URL,
		"queue": c.config.QueueName,
	}).Info("Connected to AMQP server")

	// Create a new stop channel (in case this is a reconnect)
	c.stopChan = make(chan struct{})

	// Start monitoring for connection closing
	go c.monitorConnection()

	return nil
}

// Disconnect closes the AMQP connection
func (c *AMQPClient) Disconnect() {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if !c.connected {
		return
	}

	// Signal connection monitor to stop
	close(c.stopChan)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}

	c.connected = false
	c.logger.Info("Disconnected from AMQP server")
}

// IsConnected returns the connection status
func (c *AMQPClient) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

// PublishAnalysisComplete publishes an analysis-completed event to the queue.
func (c *AMQPClient) PublishAnalysisComplete(ctx context.Context, conversationID string, doc *analytics.Document) error {
	// Recover from any panics so a broker problem can never crash the server
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(logrus.Fields{
				"conversation_id": conversationID,
				"recover":         r,
			}).Error("Recovered from panic in AMQP PublishAnalysisComplete")
		}
	}()

	if !c.IsConnected() {
		return fmt.Errorf("not connected to AMQP server")
	}

	event := AnalysisEvent{
		ConversationID: conversationID,
		Document:       doc,
		Timestamp:      time.Now(),
	}

	bodyBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis event to JSON: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	// Publish with timeout
	publishChan := make(chan error, 1)
	go func() {
		c.connMutex.RLock()
		defer c.connMutex.RUnlock()

		// Check if still connected after acquiring the lock
		if !c.connected || c.channel == nil {
			select {
			case <-publishCtx.Done():
				return
			case publishChan <- fmt.Errorf("lost AMQP connection before publishing"):
			}
			return
		}

		err := c.channel.Publish(
			c.config.ExchangeName, // Exchange
			c.config.RoutingKey,   // Routing key
			false,                 // Mandatory
			false,                 // Immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         bodyBytes,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
				// Expire stale events instead of letting the queue build up
				Expiration: "43200000", // 12 hours in milliseconds
			},
		)

		select {
		case <-publishCtx.Done():
			return
		case publishChan <- err:
		}
	}()

	select {
	case err := <-publishChan:
		if err != nil {
			return fmt.Errorf("failed to publish analysis event to AMQP: %w", err)
		}
	case <-publishCtx.Done():
		return fmt.Errorf("publishing to AMQP timed out after 200ms")
	}

	c.logger.WithField("conversation_id", conversationID).Debug("Successfully published analysis event to AMQP")
	return nil
}

// monitorConnection monitors the AMQP connection and attempts to reconnect if it closes
func (c *AMQPClient) monitorConnection() {
	closeChan := make(chan *amqp.Error)

	c.connMutex.RLock()
	if c.conn != nil {
		c.conn.NotifyClose(closeChan)
	}
	c.connMutex.RUnlock()

	for {
		select {
		case <-c.stopChan:
			// Shutting down
			return
		case closeErr := <-closeChan:
			c.connMutex.Lock()
			c.connected = false
			c.connMutex.Unlock()

			c.logger.WithError(closeErr).Warn("AMQP connection closed, attempting to reconnect")

			// Attempt to reconnect with backoff
			for attempt := 1; attempt <= 10; attempt++ {
				c.logger.WithField("attempt", attempt).Info("Reconnecting to AMQP server")

				err := c.Connect()
				if err == nil {
					c.logger.Info("Successfully reconnected to AMQP server")
					break
				}

				c.logger.WithError(err).WithField("attempt", attempt).Error("Failed to reconnect to AMQP server")

				// Exponential backoff with max delay of 30 seconds
				backoff := time.Duration(1<<uint(attempt-1)) * time.Second
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}

				time.Sleep(backoff)
			}
		}
	}
}
