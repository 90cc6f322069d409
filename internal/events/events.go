package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GameEvent is the envelope for every outbound notification.
type GameEvent struct {
	ID        string          `json:"id"`        // Event UUID
	GameID    string          `json:"game_id"`   // Game UUID, empty for pre-game errors
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType names an outbound notification.
type EventType string

const (
	EventTypeWaitingForOpponent   EventType = "waiting_for_opponent"
	EventTypeGameFound            EventType = "game_found"
	EventTypeMoveMade             EventType = "move_made"
	EventTypeGameOver             EventType = "game_over"
	EventTypeGameRejoined         EventType = "game_rejoined"
	EventTypeOpponentDisconnected EventType = "opponent_disconnected"
	EventTypeError                EventType = "error"
)

// NewGameEvent wraps payload in an envelope with a fresh event id.
func NewGameEvent(gameID uuid.UUID, eventType EventType, payload interface{}) (*GameEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	gid := ""
	if gameID != uuid.Nil {
		gid = gameID.String()
	}
	return &GameEvent{
		ID:        uuid.New().String(),
		GameID:    gid,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// CommandType names an inbound client command.
type CommandType string

const (
	CommandFindMatch  CommandType = "find_match"
	CommandMakeMove   CommandType = "make_move"
	CommandRejoinGame CommandType = "rejoin_game"
)

// ClientCommand is the envelope for every inbound client message.
type ClientCommand struct {
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEventPayload decodes an event's data into its typed payload.
func ParseEventPayload(event *GameEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeWaitingForOpponent:
		var payload WaitingForOpponentPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGameFound:
		var payload GameFoundPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeMoveMade:
		var payload MoveMadePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGameOver:
		var payload GameOverPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGameRejoined:
		var payload GameRejoinedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeOpponentDisconnected:
		var payload OpponentDisconnectedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeError:
		var payload ErrorPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
