package flags

import (
	"encoding/json"
	"errors"
)

// LocalEvaluationPayload is the body served by the local-evaluation endpoint.
type LocalEvaluationPayload struct {
	Flags            []Definition             `json:"flags"`
	GroupTypeMapping map[string]string        `json:"group_type_mapping"`
	Cohorts          map[string]PropertyGroup `json:"cohorts"`
}

// DecodeSnapshot parses a local-evaluation payload into a Snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var payload LocalEvaluationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Join(ErrInvalidDefinitions, err)
	}
	return payload.Snapshot(), nil
}

// Snapshot builds a Snapshot from the payload.
func (p LocalEvaluationPayload) Snapshot() *Snapshot {
	return NewSnapshot(p.Flags, p.Cohorts, p.GroupTypeMapping)
}

// EncodeSnapshot renders a Snapshot back into the local-evaluation wire shape.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	payload := LocalEvaluationPayload{
		Flags:            s.Flags(),
		GroupTypeMapping: s.groupTypeMapping,
		Cohorts:          s.cohorts,
	}
	return json.Marshal(payload)
}
