package broadcast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okian/matchtrack/internal/domain/model"
)

// TypePossession tags a possession announcement envelope.
const TypePossession = "possession"

// envelope is the wire frame: a type tag and the tagged payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// possessionPayload uses pointers so missing fields can be told apart
// from zero values.
type possessionPayload struct {
	MatchID   *string `json:"match_id"`
	PlayerID  *string `json:"player_id"`
	Team      *string `json:"team"`
	Timestamp *int64  `json:"timestamp"`
	TrackerID *string `json:"tracker_id"`
}

// Encode frames a possession announcement.
func Encode(ev model.PossessionEvent) ([]byte, error) {
	if err := Validate(ev); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return json.Marshal(envelope{Type: TypePossession, Payload: payload})
}

// Decode parses a frame. Any malformed input yields a *DecodeError.
func Decode(data []byte) (model.PossessionEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.PossessionEvent{}, &DecodeError{Reason: "malformed envelope", Err: err}
	}

	switch env.Type {
	case TypePossession:
		return decodePossession(env.Payload)
	case "":
		return model.PossessionEvent{}, &DecodeError{Reason: "missing type tag"}
	default:
		return model.PossessionEvent{}, &DecodeError{Reason: fmt.Sprintf("unknown type %q", env.Type)}
	}
}

func decodePossession(raw json.RawMessage) (model.PossessionEvent, error) {
	if len(raw) == 0 {
		return model.PossessionEvent{}, &DecodeError{Reason: "missing payload"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var p possessionPayload
	if err := dec.Decode(&p); err != nil {
		return model.PossessionEvent{}, &DecodeError{Reason: "malformed possession payload", Err: err}
	}

	switch {
	case p.MatchID == nil:
		return model.PossessionEvent{}, &DecodeError{Reason: "missing match_id"}
	case p.PlayerID == nil:
		return model.PossessionEvent{}, &DecodeError{Reason: "missing player_id"}
	case p.Team == nil:
		return model.PossessionEvent{}, &DecodeError{Reason: "missing team"}
	case p.Timestamp == nil:
		return model.PossessionEvent{}, &DecodeError{Reason: "missing timestamp"}
	case p.TrackerID == nil:
		return model.PossessionEvent{}, &DecodeError{Reason: "missing tracker_id"}
	}

	ev := model.PossessionEvent{
		MatchID:   *p.MatchID,
		PlayerID:  *p.PlayerID,
		Team:      model.TeamSide(*p.Team),
		Timestamp: *p.Timestamp,
		TrackerID: *p.TrackerID,
	}
	if err := Validate(ev); err != nil {
		return model.PossessionEvent{}, err
	}
	return ev, nil
}

// Validate checks field values of an announcement.
func Validate(ev model.PossessionEvent) error {
	switch {
	case ev.MatchID == "":
		return &DecodeError{Reason: "empty match_id"}
	case ev.PlayerID == "":
		return &DecodeError{Reason: "empty player_id"}
	case !ev.Team.Valid():
		return &DecodeError{Reason: fmt.Sprintf("invalid team %q", ev.Team)}
	case ev.Timestamp <= 0:
		return &DecodeError{Reason: fmt.Sprintf("invalid timestamp %d", ev.Timestamp)}
	case ev.TrackerID == "":
		return &DecodeError{Reason: "empty tracker_id"}
	}
	return nil
}
