package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Publisher sends account events.  Implementations log failures and return
// them so the caller can choose to ignore them; the services never fail a
// request because an event could not be delivered.
type Publisher interface {
    Publish(ctx context.Context, event AccountEvent) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AccountEvent) error { return nil }

// DefaultDialTimeout bounds connecting to the broker and the AMQP handshake.
const DefaultDialTimeout = 2 * time.Second

// RabbitPublisher publishes events to a durable RabbitMQ queue.  Each call
// opens its own connection so a broker restart never leaves a dead channel
// behind; account events are rare enough for that to be cheap.  Publish
// runs inside request handlers, so the dial is capped by DialTimeout and
// by the caller's deadline, whichever comes first.
type RabbitPublisher struct {
    URL         string
    Queue       string
    DialTimeout time.Duration
    Log         logrus.FieldLogger
}

func NewRabbitPublisher(url, queue string, log logrus.FieldLogger) *RabbitPublisher {
    return &RabbitPublisher{URL: url, Queue: queue, DialTimeout: DefaultDialTimeout, Log: log}
}

// dialTimeout returns the connect budget for ctx.
func (p *RabbitPublisher) dialTimeout(ctx context.Context) time.Duration {
    d := p.DialTimeout
    if d <= 0 {
        d = DefaultDialTimeout
    }
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < d {
            d = left
        }
    }
    return d
}

// Publish marshals the event and publishes it as a persistent message on
// the default exchange with the queue name as routing key.
func (p *RabbitPublisher) Publish(ctx context.Context, event AccountEvent) error {
    log := p.Log.WithField("event", event.Type)

    timeout := p.dialTimeout(ctx)
    if timeout <= 0 {
        return context.DeadlineExceeded
    }
    conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
    if err != nil {
        log.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
        log.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    pub, err := encodeEvent(event)
    if err != nil {
        log.WithError(err).Warn("rabbitmq: marshal event failed")
        return err
    }

    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
        log.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}

func encodeEvent(event AccountEvent) (amqp.Publishing, error) {
    body, err := json.Marshal(event)
    if err != nil {
        return amqp.Publishing{}, err
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         event.Type,
        Body:         body,
    }, nil
}
