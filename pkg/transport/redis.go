package transport

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis pub/sub transport adapter.
type RedisConfig struct {
	// ConnectionURL in the format "redis://:password@localhost:6379/0".
	ConnectionURL  string        `env:"PUSH_REDIS_URL,required"`
	ConnectTimeout time.Duration `env:"PUSH_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	ChannelPrefix  string        `env:"PUSH_REDIS_CHANNEL_PREFIX" envDefault:"notifhub"`
}

// RedisDialer is an alternate push-transport for deployments colocated with
// the backend's Redis, where the server publishes the same signal envelopes
// to per-subject and per-company channels instead of pushing over a
// websocket. Authentication rides on the connection URL; the handshake
// credential is not used.
type RedisDialer struct {
	cfg RedisConfig
}

// NewRedisDialer creates a Redis pub/sub dialer.
func NewRedisDialer(cfg RedisConfig) *RedisDialer {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "notifhub"
	}
	return &RedisDialer{cfg: cfg}
}

func (d *RedisDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	opt, err := redis.ParseURL(d.cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrDialFailed, err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrDialFailed, err)
	}

	// Subscribe with no channels; join/subscribe_company signals add them.
	pubsub := client.Subscribe(ctx)

	return &redisConn{
		client: client,
		pubsub: pubsub,
		prefix: d.cfg.ChannelPrefix,
	}, nil
}

// redisConn maps the outbound membership signals onto pub/sub channel
// subscriptions and reads inbound signal envelopes from channel messages.
type redisConn struct {
	client *redis.Client
	pubsub *redis.PubSub
	prefix string
}

func (c *redisConn) Send(ctx context.Context, name string, payload any) error {
	switch name {
	case SignalJoin:
		p, err := decodeAs[joinPayload](payload)
		if err != nil {
			return err
		}
		return c.pubsub.Subscribe(ctx, c.prefix+":subject:"+p.SubjectID)
	case SignalSubscribeCompany:
		p, err := decodeAs[companyPayload](payload)
		if err != nil {
			return err
		}
		return c.pubsub.Subscribe(ctx, c.prefix+":company:"+p.CompanyID)
	case SignalUnsubscribeCompany:
		p, err := decodeAs[companyPayload](payload)
		if err != nil {
			return err
		}
		return c.pubsub.Unsubscribe(ctx, c.prefix+":company:"+p.CompanyID)
	default:
		return ErrUnsupportedSignal
	}
}

func (c *redisConn) Receive(ctx context.Context) (Signal, error) {
	msg, err := c.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return Signal{}, err
	}

	var sig Signal
	if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
		return Signal{}, errors.Join(ErrMalformedSignal, err)
	}
	return sig, nil
}

func (c *redisConn) Close() error {
	err := c.pubsub.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// decodeAs round-trips an arbitrary payload value into the concrete signal
// payload type so redisConn accepts the same inputs as the websocket conn.
func decodeAs[T any](payload any) (T, error) {
	var out T
	data, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
