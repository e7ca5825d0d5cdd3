package signaling

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The hub is exercised through its channels with fake clients that have no
// websocket underneath: outbound traffic is read straight off Send.

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	return hub
}

func sendEvent(hub *Hub, c *Client, msg *Message) {
	msg.client = c
	hub.Broadcast <- msg
}

// barrier blocks until the hub has fully processed every previously
// submitted event. The hub loop is serial, so once it accepts this throwaway
// event the earlier ones are done.
func barrier(hub *Hub, c *Client) {
	hub.Broadcast <- &Message{Type: "barrier", client: c}
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		require.NotNil(t, msg, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoMessage(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	barrier(hub, c)
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message: %+v", msg)
	default:
	}
}

func join(t *testing.T, hub *Hub, c *Client, roomID, name string) *Message {
	t.Helper()
	sendEvent(hub, c, &Message{Type: EventJoinRoom, RoomID: roomID, Name: name})
	return recv(t, c)
}

func TestJoinAssignsRolesInOrder(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	joined := join(t, hub, a, "abc", "Aysel")
	assert.Equal(t, EventJoined, joined.Type)
	assert.Equal(t, "abc", joined.RoomID)
	assert.Equal(t, RoleInitiator, joined.Role)

	// Nobody else is in the room yet: no presence notice, no handshake
	// trigger.
	assertNoMessage(t, hub, a)

	joined = join(t, hub, b, "abc", "Babek")
	assert.Equal(t, RoleResponder, joined.Role)

	notice := recv(t, a)
	assert.Equal(t, EventSystem, notice.Type)
	assert.Equal(t, "Babek joined as responder", notice.Text)

	needOffer := recv(t, a)
	assert.Equal(t, EventNeedOffer, needOffer.Type)
	assert.Equal(t, "abc", needOffer.RoomID)

	// The responder gets no handshake trigger of its own.
	assertNoMessage(t, hub, b)
}

func TestJoinEmptyRoomID(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")

	sendEvent(hub, a, &Message{Type: EventJoinRoom, RoomID: "   ", Name: "Aysel"})
	errMsg := recv(t, a)
	assert.Equal(t, EventErr, errMsg.Type)
	assert.NotEmpty(t, errMsg.ErrText)
	assert.Empty(t, a.RoomID)
}

func TestThirdJoinerGetsRoomFull(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")
	c := newTestClient("c")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a) // system
	recv(t, a) // need-offer

	sendEvent(hub, c, &Message{Type: EventJoinRoom, RoomID: "abc", Name: "Cavid"})
	full := recv(t, c)
	assert.Equal(t, EventRoomFull, full.Type)
	assert.Empty(t, full.Role)
	assert.Empty(t, c.RoomID)

	// The rejection is reported to the requester only.
	assertNoMessage(t, hub, a)
	assertNoMessage(t, hub, b)
}

func TestJoinDifferentRoomOnBoundConnection(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")

	join(t, hub, a, "abc", "Aysel")

	sendEvent(hub, a, &Message{Type: EventJoinRoom, RoomID: "xyz", Name: "Aysel"})
	errMsg := recv(t, a)
	assert.Equal(t, EventErr, errMsg.Type)
	assert.Equal(t, "abc", a.RoomID)
}

func TestInitiatorRejoinRetriggersNeedOffer(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a) // system
	recv(t, a) // need-offer

	// The initiator re-joins with its identity intact while the responder
	// is still present: same role back, and a fresh handshake trigger.
	joined := join(t, hub, a, "abc", "Aysel")
	assert.Equal(t, RoleInitiator, joined.Role)

	needOffer := recv(t, a)
	assert.Equal(t, EventNeedOffer, needOffer.Type)
}

func TestOfferRoutedToResponderOnly(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a)
	recv(t, a)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	sendEvent(hub, a, &Message{Type: EventOffer, RoomID: "abc", Offer: payload})

	offer := recv(t, b)
	assert.Equal(t, EventOffer, offer.Type)
	assert.JSONEq(t, string(payload), string(offer.Offer))

	// The sender never sees its own offer reflected back.
	assertNoMessage(t, hub, a)
}

func TestOfferWithoutResponderIsDropped(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")

	join(t, hub, a, "abc", "Aysel")

	sendEvent(hub, a, &Message{Type: EventOffer, RoomID: "abc", Offer: json.RawMessage(`{}`)})
	assertNoMessage(t, hub, a)
}

func TestOfferForUnknownRoomIsDropped(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")

	sendEvent(hub, a, &Message{Type: EventOffer, RoomID: "ghost", Offer: json.RawMessage(`{}`)})
	assertNoMessage(t, hub, a)
}

func TestAnswerRoutedToInitiator(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a)
	recv(t, a)

	payload := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	sendEvent(hub, b, &Message{Type: EventAnswer, RoomID: "abc", Answer: payload})

	answer := recv(t, a)
	assert.Equal(t, EventAnswer, answer.Type)
	assert.JSONEq(t, string(payload), string(answer.Answer))
	assertNoMessage(t, hub, b)
}

func TestICERoutedToCounterpart(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a)
	recv(t, a)

	fromA := json.RawMessage(`{"candidate":"udp 10.0.0.1"}`)
	sendEvent(hub, a, &Message{Type: EventICE, RoomID: "abc", Candidate: fromA})
	got := recv(t, b)
	assert.Equal(t, EventICE, got.Type)
	assert.JSONEq(t, string(fromA), string(got.Candidate))

	fromB := json.RawMessage(`{"candidate":"udp 10.0.0.2"}`)
	sendEvent(hub, b, &Message{Type: EventICE, RoomID: "abc", Candidate: fromB})
	got = recv(t, a)
	assert.JSONEq(t, string(fromB), string(got.Candidate))
}

func TestICEFromNonOccupantIsDropped(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")
	stranger := newTestClient("stranger")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a)
	recv(t, a)

	sendEvent(hub, stranger, &Message{Type: EventICE, RoomID: "abc", Candidate: json.RawMessage(`{}`)})
	assertNoMessage(t, hub, a)
	assertNoMessage(t, hub, b)
}

func TestChatBroadcastIncludesSender(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a)
	recv(t, a)

	sendEvent(hub, a, &Message{Type: EventChat, RoomID: "abc", Name: "Aysel", Text: "salam"})

	for _, c := range []*Client{a, b} {
		chat := recv(t, c)
		assert.Equal(t, EventChat, chat.Type)
		assert.Equal(t, "Aysel", chat.Name)
		assert.Equal(t, "salam", chat.Text)
		assert.Greater(t, chat.Timestamp, int64(0))
	}
}

func TestChatTruncatesNameAndText(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")

	join(t, hub, a, "abc", "Aysel")

	longName := strings.Repeat("n", MaxNameLen+10)
	longText := strings.Repeat("t", MaxTextLen+200)
	sendEvent(hub, a, &Message{Type: EventChat, RoomID: "abc", Name: longName, Text: longText})

	chat := recv(t, a)
	assert.Len(t, []rune(chat.Name), MaxNameLen)
	assert.Len(t, []rune(chat.Text), MaxTextLen)
}

func TestEmptyChatIsDropped(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")

	join(t, hub, a, "abc", "Aysel")

	sendEvent(hub, a, &Message{Type: EventChat, RoomID: "abc", Name: "Aysel", Text: "   \n\t "})
	assertNoMessage(t, hub, a)
}

func TestDisconnectNotifiesAndKeepsRoom(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a)
	recv(t, a)

	hub.Unregister <- b

	notice := recv(t, a)
	assert.Equal(t, EventSystem, notice.Type)
	assert.Equal(t, "Babek left", notice.Text)

	// The departed client's send channel is closed by the hub.
	_, ok := <-b.Send
	assert.False(t, ok)

	// The initiator slot survives: the next distinct joiner becomes the
	// responder, not a fresh initiator.
	d := newTestClient("d")
	joined := join(t, hub, d, "abc", "Durna")
	assert.Equal(t, RoleResponder, joined.Role)
}

func TestRoomRemovedWhenBothDisconnect(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, hub, a, "abc", "Aysel")
	join(t, hub, b, "abc", "Babek")
	recv(t, a)
	recv(t, a)

	hub.Unregister <- b
	recv(t, a) // left notice
	hub.Unregister <- a

	for range a.Send {
	}

	// Same room id, fresh assignment sequence.
	e := newTestClient("e")
	joined := join(t, hub, e, "abc", "Elvin")
	assert.Equal(t, RoleInitiator, joined.Role)
}

func TestDisconnectWithoutJoinIsNoop(t *testing.T) {
	hub := startHub(t)
	a := newTestClient("a")

	hub.Unregister <- a

	_, ok := <-a.Send
	assert.False(t, ok)
}
