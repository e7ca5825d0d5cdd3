package signaling

import (
	"fmt"
	"log/slog"
	"time"
)

// Hub is the central brain of the signaling relay.
// It owns the room registry and routes every participant event.
type Hub struct {
	// registry maps room ids to slot state. Only the Run goroutine may
	// touch it; that goroutine is the exclusive critical section required
	// to keep the at-most-one-initiator / at-most-one-responder invariant.
	registry *Registry

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Broadcast is a channel for clients to submit messages to.
	// The hub processes these messages one at a time.
	Broadcast chan *Message
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		registry:   NewRegistry(),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message),
	}
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all room state. Because
// every registry mutation and every cross-participant notification happens
// here, in order, a need-offer can never be queued to an initiator before
// that initiator's own join has been recorded.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// The client is not in a room yet. It must send a
			// join-room message first.
			slog.Debug("client registered", "participant", client.ID)

		case client := <-h.Unregister:
			h.handleDisconnect(client)

		case message := <-h.Broadcast:
			h.route(message)
		}
	}
}

// route dispatches one inbound message. Unknown event types are dropped;
// nothing a client sends may take the relay down.
func (h *Hub) route(msg *Message) {
	switch msg.Type {
	case EventJoinRoom:
		h.handleJoin(msg)
	case EventOffer:
		h.handleOffer(msg)
	case EventAnswer:
		h.handleAnswer(msg)
	case EventICE:
		h.handleICE(msg)
	case EventChat:
		h.handleChat(msg)
	default:
		slog.Debug("unknown message type", "type", msg.Type, "participant", msg.client.ID)
	}
}

// handleJoin processes a join-room request: assign a slot, confirm the role
// to the requester, announce the arrival to the other occupant, and trigger
// the offer handshake when both slots are occupied.
func (h *Hub) handleJoin(msg *Message) {
	client := msg.client
	roomID := normalizeRoomID(msg.RoomID)
	name := normalizeName(msg.Name)

	if roomID == "" {
		client.Send <- &Message{Type: EventErr, ErrText: "room id must not be empty"}
		return
	}

	// The room binding is set once per connection. A reconnect is a fresh
	// connection (and a fresh identity), so it goes through cleanly; only
	// switching rooms on a live connection is refused.
	if client.RoomID != "" && client.RoomID != roomID {
		client.Send <- &Message{Type: EventErr, ErrText: "already joined a room"}
		return
	}

	room := h.registry.GetOrCreate(roomID)
	role, err := h.registry.AssignSlot(room, client)
	if err != nil {
		slog.Info("join rejected, room full", "room", roomID, "participant", client.ID)
		client.Send <- &Message{Type: EventRoomFull}
		return
	}

	client.RoomID = roomID
	client.Name = name
	client.Role = role

	slog.Info("participant joined", "room", roomID, "participant", client.ID, "role", role)

	client.Send <- &Message{Type: EventJoined, RoomID: roomID, Role: role}

	notice := fmt.Sprintf("%s joined as %s", name, role)
	for _, occupant := range room.Occupants() {
		if occupant.ID != client.ID {
			occupant.Send <- &Message{Type: EventSystem, Text: notice}
		}
	}

	// Both slots occupied: tell the initiator to produce an offer. This
	// also fires when the initiator slot itself was (re-)assigned while a
	// responder is already waiting, so a returning sharer renegotiates.
	if room.Initiator != nil && room.Responder != nil {
		room.Initiator.Send <- &Message{Type: EventNeedOffer, RoomID: roomID}
	}
}

// handleOffer forwards a session offer to the responder. Offers flow
// initiator -> responder only.
func (h *Hub) handleOffer(msg *Message) {
	room, ok := h.registry.Lookup(normalizeRoomID(msg.RoomID))
	if !ok || room.Responder == nil {
		// Benign race: the room emptied or the responder left while the
		// offer was in flight.
		return
	}
	room.Responder.Send <- &Message{Type: EventOffer, Offer: msg.Offer}
}

// handleAnswer forwards a session answer to the initiator. Answers flow
// responder -> initiator only.
func (h *Hub) handleAnswer(msg *Message) {
	room, ok := h.registry.Lookup(normalizeRoomID(msg.RoomID))
	if !ok || room.Initiator == nil {
		return
	}
	room.Initiator.Send <- &Message{Type: EventAnswer, Answer: msg.Answer}
}

// handleICE forwards a network candidate to whichever occupant is not the
// sender. A candidate from a client holding no slot in the room is dropped.
func (h *Hub) handleICE(msg *Message) {
	room, ok := h.registry.Lookup(normalizeRoomID(msg.RoomID))
	if !ok {
		return
	}
	target := room.Counterpart(msg.client)
	if target == nil {
		return
	}
	target.Send <- &Message{Type: EventICE, Candidate: msg.Candidate}
}

// handleChat broadcasts a chat line to every occupant of the room, sender
// included, with a server-assigned timestamp.
func (h *Hub) handleChat(msg *Message) {
	text := normalizeChatText(msg.Text)
	if text == "" {
		return
	}
	room, ok := h.registry.Lookup(normalizeRoomID(msg.RoomID))
	if !ok {
		return
	}

	out := &Message{
		Type:      EventChat,
		Name:      normalizeName(msg.Name),
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, occupant := range room.Occupants() {
		occupant.Send <- out
	}
}

// handleDisconnect releases the client's slot, announces the departure to
// the remaining occupant, and stops the client's write pump. Room deletion
// on empty is handled inside Release.
func (h *Hub) handleDisconnect(client *Client) {
	slog.Debug("client unregistered", "participant", client.ID)

	if client.RoomID != "" {
		if room, ok := h.registry.Lookup(client.RoomID); ok {
			h.registry.Release(room, client)

			if room.Empty() {
				slog.Info("room deleted", "room", client.RoomID)
			} else {
				notice := fmt.Sprintf("%s left", client.Name)
				for _, occupant := range room.Occupants() {
					occupant.Send <- &Message{Type: EventSystem, Text: notice}
				}
			}
		}
	}

	// Close the client's send channel to stop its WritePump.
	close(client.Send)
}
