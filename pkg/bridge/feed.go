package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/robot"
)

// Message types on the feedback stream.
const (
	TypeEndpoint = "endpoint"
	TypeRange    = "range"
)

const (
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 64 * 1024
	minBackoff       = 250 * time.Millisecond
	maxBackoff       = 5 * time.Second
)

// Message is one feedback sample. Pose is set for endpoint messages; Range,
// Min and Max for range messages.
type Message struct {
	Type  string     `json:"type"`
	Limb  robot.Limb `json:"limb"`
	Pose  *pose.Pose `json:"pose,omitempty"`
	Range float64    `json:"range,omitempty"`
	Min   float64    `json:"min,omitempty"`
	Max   float64    `json:"max,omitempty"`
}

// PoseReceiver takes endpoint pose samples.
type PoseReceiver interface {
	OnPose(p pose.Pose)
}

// RangeReceiver takes proximity samples.
type RangeReceiver interface {
	OnRange(distance, min, max float64)
}

type subscriber struct {
	poses  PoseReceiver
	ranges RangeReceiver
}

// Feed reads the feedback websocket and hands samples to the trackers of each limb.
type Feed struct {
	url    string
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[robot.Limb]subscriber
}

// NewFeed creates a feed for the websocket at url.
func NewFeed(url string, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		url:    url,
		logger: logger.With("feed", url),
		subs:   make(map[robot.Limb]subscriber),
	}
}

// Subscribe routes samples for limb to poses and ranges.
func (f *Feed) Subscribe(limb robot.Limb, poses PoseReceiver, ranges RangeReceiver) {
	f.mu.Lock()
	f.subs[limb] = subscriber{poses: poses, ranges: ranges}
	f.mu.Unlock()
}

// Run reads the stream until ctx is done, reconnecting with backoff.
func (f *Feed) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		start := time.Now()
		err := f.readOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > maxBackoff {
			backoff = minBackoff
		}
		f.logger.Warn("feedback stream lost", "err", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (f *Feed) readOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial feedback: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	f.logger.Info("feedback stream connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read feedback: %w", err)
		}
		if err := f.handle(data); err != nil {
			f.logger.Debug("dropping feedback message", "err", err)
		}
	}
}

// handle decodes one message and updates the matching tracker.
func (f *Feed) handle(data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	f.mu.RLock()
	sub, ok := f.subs[msg.Limb]
	f.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no subscriber for limb %q", msg.Limb)
	}

	switch msg.Type {
	case TypeEndpoint:
		if msg.Pose == nil {
			return fmt.Errorf("endpoint message without pose")
		}
		if sub.poses != nil {
			sub.poses.OnPose(*msg.Pose)
		}
	case TypeRange:
		if sub.ranges != nil {
			sub.ranges.OnRange(msg.Range, msg.Min, msg.Max)
		}
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}
