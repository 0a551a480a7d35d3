// Package realtime maintains a websocket subscription to the backend's
// change feed. Frames are content-free hints: the payload is never parsed,
// every frame simply means "something you may be showing has changed".
package realtime

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Channel is a reconnecting subscription to the backend change feed.
type Channel struct {
	url    string
	header http.Header
	log    zerolog.Logger

	events chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// Dial opens a change-feed subscription scoped to one user. The channel
// reconnects with backoff until Close is called or ctx is cancelled.
func Dial(ctx context.Context, rawURL, token, userID string, log zerolog.Logger) (*Channel, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing realtime url")
	}
	q := u.Query()
	q.Set("user_id", userID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		url:    u.String(),
		header: header,
		log:    log,
		events: make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.run(ctx)
	return c, nil
}

// Events yields one value per change hint. The channel is buffered with
// capacity one; hints coalesce rather than queue.
func (c *Channel) Events() <-chan struct{} {
	return c.events
}

// Close tears down the subscription. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
	})
	<-c.done
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			c.log.Debug().Err(err).Str("url", c.url).Msg("realtime dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = initialBackoff
		c.log.Debug().Str("url", c.url).Msg("realtime connected")
		c.pump(ctx, conn)
	}
}

// pump reads frames until the connection drops or ctx is cancelled,
// pinging on pingPeriod to keep the connection alive.
func (c *Channel) pump(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				c.log.Debug().Err(err).Msg("realtime read ended")
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))
			c.hint()
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			<-readDone
			return
		case <-readDone:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				<-readDone
				return
			}
		}
	}
}

// hint delivers one coalesced event without blocking.
func (c *Channel) hint() {
	select {
	case c.events <- struct{}{}:
	default:
	}
}
