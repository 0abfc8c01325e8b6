package store

import "encoding/json"

type preference struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetPreference stores or overwrites a user preference.
func (s *Store) SetPreference(key, value string) error {
	recs, err := s.ReadAll(Preferences)
	if err != nil {
		return err
	}

	for _, r := range recs {
		var p preference
		if json.Unmarshal(r.Data, &p) == nil && p.Key == key {
			return s.Update(Preferences, r.ID, func(json.RawMessage) (any, error) {
				return preference{Key: key, Value: value}, nil
			})
		}
	}

	_, err = s.Append(Preferences, preference{Key: key, Value: value})
	return err
}

// GetPreference looks a preference up, returning ok=false when unset.
func (s *Store) GetPreference(key string) (string, bool) {
	recs, err := s.ReadAll(Preferences)
	if err != nil {
		return "", false
	}
	for _, r := range recs {
		var p preference
		if json.Unmarshal(r.Data, &p) == nil && p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}
