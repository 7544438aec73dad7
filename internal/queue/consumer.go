package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Mailer delivers one verification mail.
type Mailer interface {
    SendOTP(ctx context.Context, ev OTPRequestedEvent) error
}

// LogMailer records deliveries in the log instead of sending mail.  The
// code itself is never logged.
type LogMailer struct {
    Log *logrus.Logger
}

func (m LogMailer) SendOTP(_ context.Context, ev OTPRequestedEvent) error {
    masked := "***"
    if len(ev.Email) > 3 {
        masked = ev.Email[:3] + "***"
    }
    m.Log.WithFields(logrus.Fields{
        "event":      "OTP_MAIL_DELIVERED",
        "email":      masked,
        "expires_in": ev.ExpiresIn,
    }).Info("verification mail delivered")
    return nil
}

// StartOTPConsumer connects to RabbitMQ, declares the onboarding.otp queue
// (durable) and hands every message to mailer.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.  A message
// the mailer rejects is dropped rather than requeued, so one bad payload
// cannot spin the loop.
func StartOTPConsumer(ctx context.Context, url string, mailer Mailer, log *logrus.Logger) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := dialAMQP(url, dialTimeout)
        if err != nil {
            log.WithError(err).Warnf("otp-consumer: failed to dial broker; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, mailer, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.WithError(err).Warn("otp-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, mailer Mailer, log *logrus.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.WithError(err).Warn("otp-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(OTPQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(OTPQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(ctx, d.Body, mailer); err != nil {
                log.WithError(err).Error("otp-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(ctx context.Context, body []byte, mailer Mailer) error {
    var ev OTPRequestedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Email == "" || ev.OTP == "" {
        return errors.New("event without email or otp")
    }
    return mailer.SendOTP(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
