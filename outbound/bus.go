package outbound

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jackc/puddle/v2"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// BusTransport is the concrete pub/sub transport backing bus-mode publishes
// (spec §4.H). A subject maps to an MQTT topic; `{stream, sequence}` has no
// native MQTT equivalent, so it is simulated with a per-subject monotonic
// counter recorded alongside the publish (documented simplification, since
// no JetStream-style client is available in the dependency pack).
type BusTransport struct {
	pool    *puddle.Pool[mqtt.Client]
	clients []*puddle.Resource[mqtt.Client]
	next    uint64
	timeout time.Duration
	dedup   *dedupTracker

	seqMu sync.Mutex
	seq   map[string]int64
}

// NewBusTransport connects poolSize broker clients up front (spec §4.H "a
// connection pool of fixed size is maintained") and returns a transport
// ready to publish. brokerURLs is cycled over if it has fewer entries than
// poolSize, so a single-broker deployment still gets poolSize connections.
func NewBusTransport(brokerURLs []string, auth Auth, tlsCfg *TLSConfig, cfg types.Config, poolSize int) (*BusTransport, error) {
	if len(brokerURLs) == 0 {
		return nil, types.NewError(types.CodeBusUnavailable, "no broker URLs configured", nil)
	}

	tlsConf, err := buildTLSConfig(tlsCfg)
	if err != nil {
		return nil, types.NewError(types.CodeBusAuth, err.Error(), nil)
	}

	idx := 0
	pool, err := puddle.NewPool(&puddle.Config[mqtt.Client]{
		Constructor: func(ctx context.Context) (mqtt.Client, error) {
			url := brokerURLs[idx%len(brokerURLs)]
			idx++
			opts := mqtt.NewClientOptions().AddBroker(url).SetConnectTimeout(cfg.BusConnectTimeout)
			if err := applyAuth(opts, auth); err != nil {
				return nil, err
			}
			if tlsConf != nil {
				opts.SetTLSConfig(tlsConf)
			}
			client := mqtt.NewClient(opts)
			token := client.Connect()
			if !token.WaitTimeout(cfg.BusConnectTimeout) {
				return nil, types.NewError(types.CodeBusUnavailable, "connect timed out", map[string]interface{}{"broker": url})
			}
			if err := token.Error(); err != nil {
				return nil, types.NewError(types.CodeBusUnavailable, err.Error(), map[string]interface{}{"broker": url})
			}
			return client, nil
		},
		Destructor: func(client mqtt.Client) {
			client.Disconnect(250)
		},
		MaxSize: int32(poolSize),
	})
	if err != nil {
		return nil, err
	}

	b := &BusTransport{
		pool:    pool,
		timeout: cfg.BusConnectTimeout,
		dedup:   newDedupTracker(cfg.DedupWindow),
		seq:     make(map[string]int64),
	}
	for i := 0; i < poolSize; i++ {
		res, err := pool.Acquire(context.Background())
		if err != nil {
			b.Close()
			return nil, err
		}
		b.clients = append(b.clients, res)
	}
	return b, nil
}

// Close tears down every pooled connection.
func (b *BusTransport) Close() {
	for _, res := range b.clients {
		res.Destroy()
	}
}

func (b *BusTransport) pick() mqtt.Client {
	i := atomic.AddUint64(&b.next, 1)
	return b.clients[i%uint64(len(b.clients))].Value()
}

func (b *BusTransport) nextSequence(subject string) int64 {
	b.seqMu.Lock()
	defer b.seqMu.Unlock()
	b.seq[subject]++
	return b.seq[subject]
}

// busEnvelope is the wire payload published to the topic; MessageID rides
// alongside the caller's payload since MQTT 3.1.1 (unlike MQTT5) has no
// user-property slot to carry it as a true header.
type busEnvelope struct {
	MessageID string          `json:"messageId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Publish sends payload to subject, deduplicating on messageID within the
// configured window. It makes one attempt and reports a transient failure
// as an error; neither Publish nor the retry sweeper publishes it again.
func (b *BusTransport) Publish(ctx context.Context, subject, messageID string, payload []byte) (BusAck, error) {
	if ack, ok := b.dedup.Lookup(messageID); ok {
		return ack, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	wire, err := json.Marshal(busEnvelope{MessageID: messageID, Payload: payload})
	if err != nil {
		return BusAck{}, err
	}

	client := b.pick()
	done := make(chan mqtt.Token, 1)
	go func() { done <- client.Publish(subject, 1, false, wire) }()

	select {
	case <-opCtx.Done():
		return BusAck{}, types.NewError(types.CodeBusPublishFailed, "publish timed out", map[string]interface{}{"subject": subject})
	case token := <-done:
		if !token.WaitTimeout(b.timeout) {
			return BusAck{}, types.NewError(types.CodeBusPublishFailed, "publish ack timed out", map[string]interface{}{"subject": subject})
		}
		if err := token.Error(); err != nil {
			return BusAck{}, types.NewError(types.CodeBusPublishFailed, err.Error(), map[string]interface{}{"subject": subject})
		}
	}

	ack := BusAck{Stream: subject, Sequence: b.nextSequence(subject)}
	b.dedup.Remember(messageID, ack)
	return ack, nil
}

func applyAuth(opts *mqtt.ClientOptions, auth Auth) error {
	switch auth.Mode {
	case AuthNone, "":
		return nil
	case AuthStaticToken:
		opts.SetUsername("token").SetPassword(auth.Token)
		return nil
	case AuthCredentialsFile:
		data, err := os.ReadFile(auth.CredentialsFile)
		if err != nil {
			return fmt.Errorf("outbound: reading credentials file: %w", err)
		}
		var creds struct{ Username, Password string }
		if err := json.Unmarshal(data, &creds); err != nil {
			return fmt.Errorf("outbound: parsing credentials file: %w", err)
		}
		opts.SetUsername(creds.Username).SetPassword(creds.Password)
		return nil
	case AuthKeypairSeed:
		// MQTT has no native NATS-nkey-style keypair auth; the seed is used
		// as a static password against a fixed identity derived from it,
		// the closest this transport can get without a keypair-aware broker.
		opts.SetUsername("keypair").SetPassword(auth.KeypairSeed)
		return nil
	default:
		return fmt.Errorf("outbound: unknown auth mode %q", auth.Mode)
	}
}

func buildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil || cfg.Mode != TLSRequired {
		return nil, nil
	}
	pool := x509.NewCertPool()
	pem, err := os.ReadFile(cfg.TrustRootPEMPath)
	if err != nil {
		return nil, fmt.Errorf("outbound: reading trust root: %w", err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("outbound: trust root %q contains no usable certificates", cfg.TrustRootPEMPath)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
