package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"github.com/Ieysn/watch-party/internal/signaling"
	"github.com/Ieysn/watch-party/pkg/client"
)

var sayText string

var joinCmd = &cobra.Command{
	Use:   "join <room>",
	Short: "Join a room and answer the sharer's offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(args[0])
	},
}

func init() {
	joinCmd.Flags().StringVar(&sayText, "say", "", "chat line to send after joining")
	rootCmd.AddCommand(joinCmd)
}

func configureLogger() error {
	var level slog.Level
	switch logLevel {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		return errors.New("unexpected log level")
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	return nil
}

// answeringPeer wraps the pion peer connection for the answer side of the
// handshake. The relay only ever sees the marshalled blobs.
type answeringPeer struct {
	pc     *webrtc.PeerConnection
	relay  *client.Client
	roomID string

	// Candidates that arrived before the offer did; applied once the
	// remote description is set.
	pending []webrtc.ICECandidateInit
}

func newAnsweringPeer(relay *client.Client, roomID string) *answeringPeer {
	return &answeringPeer{relay: relay, roomID: roomID}
}

// handleOffer builds the peer connection (on first offer, or rebuilds it on
// renegotiation after a sharer reconnect), answers, and starts trickling ICE.
func (p *answeringPeer) handleOffer(raw json.RawMessage) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(raw, &offer); err != nil {
		return fmt.Errorf("undecodable offer: %w", err)
	}

	if p.pc == nil {
		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{{URLs: []string{stunServer}}},
		})
		if err != nil {
			return fmt.Errorf("failed to create peer connection: %w", err)
		}
		p.pc = pc

		pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
			if candidate == nil {
				return
			}
			blob, err := json.Marshal(candidate.ToJSON())
			if err != nil {
				slog.Error("failed to marshal ICE candidate", "err", err)
				return
			}
			p.relay.SendCandidate(p.roomID, blob)
		})

		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			slog.Info("remote track arrived", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		})

		pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
			slog.Info("peer connection state changed", "state", state.String())
		})
	}

	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	for _, candidate := range p.pending {
		if err := p.pc.AddICECandidate(candidate); err != nil {
			slog.Warn("failed to add buffered ICE candidate", "err", err)
		}
	}
	p.pending = nil

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}

	blob, err := json.Marshal(p.pc.LocalDescription())
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	p.relay.SendAnswer(p.roomID, blob)
	slog.Info("answer sent", "room", p.roomID)
	return nil
}

func (p *answeringPeer) handleCandidate(raw json.RawMessage) {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &candidate); err != nil {
		slog.Warn("undecodable ICE candidate", "err", err)
		return
	}
	if p.pc == nil || p.pc.RemoteDescription() == nil {
		p.pending = append(p.pending, candidate)
		return
	}
	if err := p.pc.AddICECandidate(candidate); err != nil {
		slog.Warn("failed to add ICE candidate", "err", err)
	}
}

func (p *answeringPeer) close() {
	if p.pc != nil {
		p.pc.Close()
	}
}

func runJoin(roomID string) error {
	if err := configureLogger(); err != nil {
		return err
	}

	relay := client.New(serverURL)
	if err := relay.Connect(); err != nil {
		return err
	}
	defer relay.Close()

	relay.Join(roomID, probeName)

	peer := newAnsweringPeer(relay, roomID)
	defer peer.close()

	for msg := range relay.Incoming() {
		switch msg.Type {
		case signaling.EventJoined:
			slog.Info("joined", "room", msg.RoomID, "role", msg.Role)
			if msg.Role != signaling.RoleResponder {
				slog.Warn("holding the initiator slot; probe only answers offers, waiting anyway")
			}
			if sayText != "" {
				relay.SendChat(roomID, probeName, sayText)
			}

		case signaling.EventRoomFull:
			return errors.New("room is full")

		case signaling.EventErr:
			return fmt.Errorf("relay error: %s", msg.ErrText)

		case signaling.EventSystem:
			slog.Info("system notice", "text", msg.Text)

		case signaling.EventChat:
			slog.Info("chat", "from", msg.Name, "text", msg.Text, "timestamp", msg.Timestamp)

		case signaling.EventNeedOffer:
			// Sent to the initiator; nothing for the answer side to do.

		case signaling.EventOffer:
			if err := peer.handleOffer(msg.Offer); err != nil {
				return err
			}

		case signaling.EventICE:
			peer.handleCandidate(msg.Candidate)
		}
	}

	return errors.New("relay connection closed")
}
