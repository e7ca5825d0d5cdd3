package signaling

import "errors"

// ErrRoomFull is returned by AssignSlot when both slots of a room are held
// by other participants. The third joiner must not enter the room.
var ErrRoomFull = errors.New("room is full")

// Role identifies which of the two slots a participant holds.
type Role string

const (
	// RoleInitiator is the first distinct joiner, expected to originate
	// the WebRTC handshake (typically the screen-sharing side).
	RoleInitiator Role = "initiator"

	// RoleResponder is the second distinct joiner, which answers the
	// initiator's offer.
	RoleResponder Role = "responder"
)

// Room holds the two participant slots for one room id.
type Room struct {
	// ID is the externally supplied identifier for the room.
	ID string

	// Initiator is the client holding the initiator slot, or nil.
	Initiator *Client

	// Responder is the client holding the responder slot, or nil.
	Responder *Client
}

// Empty reports whether both slots are vacant.
func (r *Room) Empty() bool {
	return r.Initiator == nil && r.Responder == nil
}

// Occupants returns the clients currently holding a slot.
func (r *Room) Occupants() []*Client {
	occupants := make([]*Client, 0, 2)
	if r.Initiator != nil {
		occupants = append(occupants, r.Initiator)
	}
	if r.Responder != nil {
		occupants = append(occupants, r.Responder)
	}
	return occupants
}

// Counterpart returns the occupant that is not c, or nil if c holds neither
// slot or the other slot is vacant. Identity is compared by client id.
func (r *Room) Counterpart(c *Client) *Client {
	switch {
	case r.Initiator != nil && r.Initiator.ID == c.ID:
		return r.Responder
	case r.Responder != nil && r.Responder.ID == c.ID:
		return r.Initiator
	default:
		return nil
	}
}

// Registry is the process-wide mapping from room ids to slot state.
// It is pure state with no I/O and no internal locking: every method must
// be called from the hub goroutine, which is the single critical section
// guarding all room mutation.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the room for roomID, creating an empty one if absent.
func (reg *Registry) GetOrCreate(roomID string) *Room {
	room, ok := reg.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID}
		reg.rooms[roomID] = room
	}
	return room
}

// Lookup returns the room for roomID if it exists.
func (reg *Registry) Lookup(roomID string) (*Room, bool) {
	room, ok := reg.rooms[roomID]
	return room, ok
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	return len(reg.rooms)
}

// AssignSlot places c into a slot of room and returns the assigned role.
//
// Assignment priority:
//  1. c already holds the initiator slot -> initiator
//  2. c already holds the responder slot -> responder
//  3. initiator slot vacant -> take it, initiator
//  4. responder slot vacant -> take it, responder
//  5. both slots held by others -> ErrRoomFull
//
// Re-assignment for an identity that already holds a slot is idempotent: the
// existing role is returned and the other occupant is never evicted.
func (reg *Registry) AssignSlot(room *Room, c *Client) (Role, error) {
	switch {
	case room.Initiator != nil && room.Initiator.ID == c.ID:
		return RoleInitiator, nil
	case room.Responder != nil && room.Responder.ID == c.ID:
		return RoleResponder, nil
	case room.Initiator == nil:
		room.Initiator = c
		return RoleInitiator, nil
	case room.Responder == nil:
		room.Responder = c
		return RoleResponder, nil
	default:
		return "", ErrRoomFull
	}
}

// Release clears whichever slot (if any) is held by c. If both slots are now
// vacant the room entry is removed from the registry, so empty rooms never
// linger. Releasing an identity that holds no slot is a no-op.
func (reg *Registry) Release(room *Room, c *Client) {
	if room.Initiator != nil && room.Initiator.ID == c.ID {
		room.Initiator = nil
	}
	if room.Responder != nil && room.Responder.ID == c.ID {
		room.Responder = nil
	}
	if room.Empty() {
		delete(reg.rooms, room.ID)
	}
}
