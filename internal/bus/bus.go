// Package bus bridges the assistant to a websocket chat bus: commands come in
// as messages, replies and errors go back out.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"parle/internal/host"
)

const Name = "parle"

// Message kinds.
const (
	KindCommand = "command"
	KindListen  = "listen"
	KindOpen    = "open"
	KindReply   = "reply"
)

// ReconnectDelay is waited between dial attempts after the bus went away.
var ReconnectDelay = 2 * time.Second

type Bus struct {
	url  string
	conn *websocket.Conn
	wmu  sync.Mutex // guards conn swaps and writes
}

type BusMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

func NewBus(wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{url: u.String(), conn: conn}, nil
}

func (b *Bus) current() *websocket.Conn {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return b.conn
}

// reconnect dials until it succeeds or ctx ends.
func (b *Bus) reconnect(ctx context.Context) error {
	log.Warn("Trying to reconnect", "url", b.url)

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		if err == nil {
			b.wmu.Lock()
			b.conn.Close()
			b.conn = conn
			b.wmu.Unlock()

			log.Info("Reconnected to bus", "url", b.url)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ReconnectDelay):
		}
	}
}

func (b *Bus) Read() (*BusMessage, error) {
	_, msg, err := b.current().ReadMessage()
	if err != nil {
		return nil, err
	}

	var m BusMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

func (b *Bus) Write(m *BusMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.wmu.Lock()
	defer b.wmu.Unlock()

	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Publish sends an assistant reply to every bus client.
func (b *Bus) Publish(text string) {
	b.Post(KindReply, text)
}

// Post sends a chat message of the given kind.
func (b *Bus) Post(kind, text string) {
	err := b.Write(&BusMessage{From: Name, To: "all", Kind: kind, Content: text})
	if err != nil {
		log.Warn("Failed to write to bus", "kind", kind, "err", err)
	}
}

func (b *Bus) Close() error {
	return b.current().Close()
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}

// Serve feeds bus messages addressed to the assistant into h until ctx ends
// or the connection fails. A bus that closes the connection is redialed.
func (b *Bus) Serve(ctx context.Context, h *host.Host) error {
	go func() {
		<-ctx.Done()
		b.Close()
	}()

	for {
		msg, err := b.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				log.Warn("Ignoring malformed bus message", "err", err)
				continue
			}
			if isClosed(err) {
				if err := b.reconnect(ctx); err != nil || ctx.Err() != nil {
					b.Close()
					return nil
				}
				continue
			}
			return err
		}

		if msg.From == Name || (msg.To != "" && msg.To != Name && msg.To != "all") {
			continue
		}

		switch msg.Kind {
		case KindCommand:
			h.Submit(msg.Content)
		case KindListen:
			if err := h.Listen(); err != nil {
				b.Post(host.KindError, err.Error())
			}
		case KindOpen:
			h.Open(msg.Content)
		default:
			log.Debug("Ignoring bus message", "kind", msg.Kind)
		}
	}
}
