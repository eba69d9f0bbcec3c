package postgres

import (
	"encoding/json"
	"fmt"

	v1 "github.com/netzet-lab/klaviyo-bridge/internal/api/v1"
)

// marshalEventJSON marshals an event's attribute maps to JSON for jsonb columns.
//
// Nil maps produce nil (SQL NULL) rather than the JSON "null" string.
func marshalEventJSON(event *v1.Event) (attrsJSON, profileJSON []byte, err error) {
	if len(event.Attributes) > 0 {
		attrsJSON, err = json.Marshal(event.Attributes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal attributes: %w", err)
		}
	}

	if len(event.ProfileAttributes) > 0 {
		profileJSON, err = json.Marshal(event.ProfileAttributes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal profile attributes: %w", err)
		}
	}

	return attrsJSON, profileJSON, nil
}
