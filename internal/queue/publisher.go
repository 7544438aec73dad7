package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Publisher hands verification codes to the mail worker through RabbitMQ.
// It implements service.Notifier.  The connection is opened lazily and
// re-dialled after the broker drops it.
type Publisher struct {
    url    string
    ttl    time.Duration
    log    *logrus.Logger
    dialer func(url string, timeout time.Duration) (*amqp.Connection, error)

    mu   sync.Mutex
    conn *amqp.Connection
}

// dialTimeout bounds the TCP connect and the AMQP handshake.
const dialTimeout = 5 * time.Second

func NewPublisher(url string, otpTTL time.Duration, log *logrus.Logger) *Publisher {
    return &Publisher{url: url, ttl: otpTTL, log: log, dialer: dialAMQP}
}

func dialAMQP(url string, timeout time.Duration) (*amqp.Connection, error) {
    return amqp.DialConfig(url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
}

// SendVerification publishes an OTPRequestedEvent.  It returns only after
// the message was handed to the broker, so callers can stage state on
// success.
func (p *Publisher) SendVerification(ctx context.Context, name, email, otp string) error {
    body, err := json.Marshal(OTPRequestedEvent{
        Name:        name,
        Email:       email,
        OTP:         otp,
        ExpiresIn:   int(p.ttl / time.Second),
        RequestedAt: time.Now().UTC().Format(time.RFC3339),
    })
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    ch, err := p.channel(ctx)
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        OTPQueueName, // name
        true,         // durable
        false,        // autoDelete
        false,        // exclusive
        false,        // noWait
        nil,          // args
    ); err != nil {
        p.log.WithError(err).Warn("rabbitmq: queue declare failed")
        return fmt.Errorf("queue declare: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",           // default exchange
        OTPQueueName, // routing key = queue name
        false,        // mandatory
        false,        // immediate
        pub,
    ); err != nil {
        p.log.WithError(err).Warn("rabbitmq: publish failed")
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// channel opens a channel, dialling first when there is no live
// connection.  The dial never outlasts ctx or dialTimeout.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    if p.conn == nil || p.conn.IsClosed() {
        timeout := dialTimeout
        if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
            timeout = time.Until(dl)
        }
        conn, err := p.dialer(p.url, timeout)
        if err != nil {
            p.log.WithError(err).Warn("rabbitmq: dial failed")
            return nil, fmt.Errorf("dial broker: %w", err)
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        _ = p.conn.Close()
        p.conn = nil
        return nil, fmt.Errorf("channel open: %w", err)
    }
    return ch, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil {
        return nil
    }
    err := p.conn.Close()
    p.conn = nil
    return err
}
