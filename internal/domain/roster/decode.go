package roster

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/matchtrack/internal/domain/model"
)

// DecodeIDs normalizes an assignment list. The store may return a
// structured list or an encoded blob; both are accepted. Blank and
// repeated entries are dropped, order is kept. Anything else yields an
// empty list and an error wrapping ErrDataIntegrity.
func DecodeIDs(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return normalize(v), nil
	case []any:
		ids := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return []string{}, fmt.Errorf("%w: element %d is %T", ErrDataIntegrity, i, item)
			}
			ids = append(ids, s)
		}
		return normalize(ids), nil
	case string:
		return decodeBlob([]byte(v))
	case []byte:
		return decodeBlob(v)
	case json.RawMessage:
		return decodeBlob(v)
	default:
		return []string{}, fmt.Errorf("%w: unsupported shape %T", ErrDataIntegrity, raw)
	}
}

func decodeBlob(b []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		return []string{}, nil
	}
	var items []any
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return []string{}, fmt.Errorf("%w: %w", ErrDataIntegrity, err)
	}
	return DecodeIDs(items)
}

func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DecodeAssignment converts a stored record. On a decode failure the
// affected list is left empty and the error is returned alongside a
// usable assignment.
func DecodeAssignment(rec model.AssignmentRecord) (model.Assignment, error) {
	a := model.Assignment{
		TrackerID: rec.TrackerID,
		MatchID:   rec.MatchID,
		Role:      model.Role(strings.ToLower(strings.TrimSpace(rec.Role))),
	}

	var errs []error
	players, err := DecodeIDs(rec.Players)
	if err != nil {
		errs = append(errs, fmt.Errorf("players: %w", err))
	}
	a.PlayerIDs = players

	labels, err := DecodeIDs(rec.EventTypes)
	if err != nil {
		errs = append(errs, fmt.Errorf("event types: %w", err))
	}
	if len(labels) > 0 {
		a.EventTypes = labels
	}

	switch len(errs) {
	case 0:
		return a, nil
	case 1:
		return a, errs[0]
	default:
		return a, fmt.Errorf("%w; %w", errs[0], errs[1])
	}
}
