package notifications

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"

	"xritd/internal/services"
	"xritd/internal/textutil"
)

// ProductEvent is the msgpack payload published on NATS.
type ProductEvent struct {
	Folder      string    `msgpack:"folder"`
	GroupKey    int64     `msgpack:"group_key"`
	Pipeline    string    `msgpack:"pipeline"`
	Tag         string    `msgpack:"tag"`
	Satellite   string    `msgpack:"satellite"`
	Region      string    `msgpack:"region"`
	FileName    string    `msgpack:"file_name"`
	Path        string    `msgpack:"path"`
	FrameTime   time.Time `msgpack:"frame_time"`
	PublishedAt time.Time `msgpack:"published_at"`
}

// NewProductEvent converts a product into its wire form.
func NewProductEvent(p Product, now time.Time) ProductEvent {
	return ProductEvent{
		Folder:      p.Folder,
		GroupKey:    p.GroupKey,
		Pipeline:    p.Pipeline,
		Tag:         p.Tag,
		Satellite:   p.Satellite,
		Region:      p.Region,
		FileName:    filepath.Base(p.Path),
		Path:        p.Path,
		FrameTime:   p.FrameTime.UTC(),
		PublishedAt: now.UTC(),
	}
}

// EncodeEvent serializes an event with msgpack.
func EncodeEvent(ev ProductEvent) ([]byte, error) {
	return msgpack.Marshal(ev)
}

// DecodeEvent parses a msgpack encoded event.
func DecodeEvent(data []byte) (ProductEvent, error) {
	var ev ProductEvent
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return ProductEvent{}, err
	}
	return ev, nil
}

// Subject returns the NATS subject for a product:
// <prefix>.<satellite>.<region>.<tag>.
func Subject(prefix string, p Product) string {
	tag := p.Tag
	if tag == "" {
		tag = p.Pipeline
	}
	parts := []string{
		textutil.SanitizeToken(p.Satellite),
		textutil.SanitizeToken(p.Region),
		textutil.SanitizeToken(tag),
	}
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return strings.Join(parts, ".")
	}
	return prefix + "." + strings.Join(parts, ".")
}

// Conn is the subset of *nats.Conn used by NATSPublisher.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher emits product events on NATS core subjects.
type NATSPublisher struct {
	conn    Conn
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// DialNATS connects to url and returns a publisher using prefix for subjects.
func DialNATS(url, prefix string, timeout time.Duration) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("xritd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.Timeout(timeout),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "connect nats", "Failed to connect to NATS", err)
	}
	return NewNATSPublisher(conn, prefix, timeout), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn Conn, prefix string, timeout time.Duration) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, timeout: timeout, now: time.Now}
}

// Publish encodes p and publishes it, flushing so delivery errors surface.
func (n *NATSPublisher) Publish(ctx context.Context, p Product) error {
	data, err := EncodeEvent(NewProductEvent(p, n.now()))
	if err != nil {
		return publishError("nats", p, fmt.Errorf("encode event: %w", err))
	}
	if err := n.conn.Publish(Subject(n.prefix, p), data); err != nil {
		return publishError("nats", p, err)
	}
	flushCtx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.conn.FlushWithContext(flushCtx); err != nil {
		return publishError("nats", p, fmt.Errorf("flush: %w", err))
	}
	return nil
}

// Close drops the connection.
func (n *NATSPublisher) Close() error {
	n.conn.Close()
	return nil
}
