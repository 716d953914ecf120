package k8s

import (
	"encoding/json"
	"fmt"
)

func (t TrustedSources) MarshalJSON() ([]byte, error) {
	if t.All {
		return json.Marshal(TrustAllSources)
	}
	urls := t.URLs
	if urls == nil {
		urls = []string{}
	}
	return json.Marshal(urls)
}

func (t *TrustedSources) UnmarshalJSON(data []byte) error {
	var all string
	if err := json.Unmarshal(data, &all); err == nil {
		if all != TrustAllSources {
			return fmt.Errorf("trusted sources must be %q or a list, got %q", TrustAllSources, all)
		}
		*t = TrustedSources{All: true}
		return nil
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}
	*t = TrustedSources{URLs: urls}
	return nil
}
