// Package client implements a programmatic participant for the signaling
// relay. It speaks the same websocket event surface as the browser app and
// is used by the responder probe and the end-to-end tests.
package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ieysn/watch-party/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the WebSocket connection to the signaling relay.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *signaling.Message
	outgoing  chan *signaling.Message
	done      chan struct{}
	closed    bool
}

// New creates a client for the relay at serverURL (a ws:// or wss:// URL
// pointing at the /ws endpoint). Call Connect before using it.
func New(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *signaling.Message, 16),
		outgoing:  make(chan *signaling.Message, 16),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection to the relay and starts the
// read and write pumps.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.incoming <- &msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues an arbitrary message to the relay.
func (c *Client) Send(msg *signaling.Message) {
	c.outgoing <- msg
}

// Join requests a slot in roomID under the given display name.
func (c *Client) Join(roomID, name string) {
	c.Send(&signaling.Message{Type: signaling.EventJoinRoom, RoomID: roomID, Name: name})
}

// SendOffer forwards an opaque session offer for the room's responder.
func (c *Client) SendOffer(roomID string, offer json.RawMessage) {
	c.Send(&signaling.Message{Type: signaling.EventOffer, RoomID: roomID, Offer: offer})
}

// SendAnswer forwards an opaque session answer for the room's initiator.
func (c *Client) SendAnswer(roomID string, answer json.RawMessage) {
	c.Send(&signaling.Message{Type: signaling.EventAnswer, RoomID: roomID, Answer: answer})
}

// SendCandidate forwards an opaque network candidate to the counterpart.
func (c *Client) SendCandidate(roomID string, candidate json.RawMessage) {
	c.Send(&signaling.Message{Type: signaling.EventICE, RoomID: roomID, Candidate: candidate})
}

// SendChat broadcasts a chat line to the room.
func (c *Client) SendChat(roomID, name, text string) {
	c.Send(&signaling.Message{Type: signaling.EventChat, RoomID: roomID, Name: name, Text: text})
}

// Incoming returns the channel of messages from the relay. It is closed
// when the connection drops.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
