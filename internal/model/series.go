package model

import (
	"encoding/json"
	"math"
)

// Series is a per-generation curve. Penalized generations can carry +Inf,
// which JSON cannot represent, so +Inf is written as null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	out := make([]*float64, len(s))
	for i := range s {
		if math.IsInf(s[i], 1) {
			continue
		}
		v := s[i]
		out[i] = &v
	}
	return json.Marshal(out)
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}
