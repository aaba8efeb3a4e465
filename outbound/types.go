// Package outbound implements the Outbound Fan-out subsystem (spec §4.H):
// a unified publisher that lands a rule-produced event into a durable queue
// table, a real-time message bus, or both, with independent per-transport
// status tracking, dedup, and retry.
package outbound

import "time"

// PublishMode selects which transport(s) a webhook fans out through.
type PublishMode string

const (
	ModeQueue PublishMode = "queue"
	ModeBus   PublishMode = "bus"
	ModeBoth  PublishMode = "both"
)

// AuthMode is a bus connection's authentication variant (spec §4.H
// "Authentication variants supported: none, static token, credentials
// file, keypair seed").
type AuthMode string

const (
	AuthNone            AuthMode = "none"
	AuthStaticToken     AuthMode = "token"
	AuthCredentialsFile AuthMode = "credentials-file"
	AuthKeypairSeed     AuthMode = "keypair-seed"
)

// TLSMode is off or required-with-trust-root (spec §4.H).
type TLSMode string

const (
	TLSOff      TLSMode = "off"
	TLSRequired TLSMode = "required"
)

// Auth describes one bus connection's credentials.
type Auth struct {
	Mode            AuthMode
	Token           string
	CredentialsFile string
	KeypairSeed     string
}

// TLSConfig describes one bus connection's transport security.
type TLSConfig struct {
	Mode       TLSMode
	TrustRootPEMPath string
}

// Webhook is a Webhook Descriptor (spec §3).
type Webhook struct {
	ID                 string
	Name               string
	URL                string
	Method             string
	Headers            map[string]string
	Timeout            time.Duration
	RetryEnabled       bool
	MaxRetries         int
	RetryDelay         time.Duration
	BackoffMultiplier  float64
	PublishMode        PublishMode
	BusSubject         string
	Enabled            bool
}

// Envelope is an Outbound Envelope (spec §3).
type Envelope struct {
	ID          string
	WebhookID   string
	Subject     string
	Payload     []byte
	MessageID   string
	CreatedAt   time.Time
	Status      string
	Attempt     int
	NextRetryAt *time.Time
	LastError   string
}

// BusAck is what a successful bus publish reports back (spec §3 Outbound
// Envelope's eventual `{stream, sequence}`).
type BusAck struct {
	Stream   string
	Sequence int64
}
