package v1

import (
	"encoding/json"
	"testing"
)

func TestEvent_Validation(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name: "valid event with all fields",
			event: Event{
				Name:              "purchased",
				Attributes:        map[string]interface{}{"value": 19.99},
				ProfileAttributes: map[string]interface{}{"email": "alice@example.com"},
			},
			wantErr: false,
		},
		{
			name:    "valid event with name only",
			event:   Event{Name: "viewed_product"},
			wantErr: false,
		},
		{
			name: "missing name",
			event: Event{
				Attributes: map[string]interface{}{"value": 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Event.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBulkEventsRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     BulkEventsRequest
		wantErr bool
	}{
		{
			name: "valid batch",
			req: BulkEventsRequest{Events: []Event{
				{Name: "purchased"},
				{Name: "refunded"},
			}},
			wantErr: false,
		},
		{
			name:    "empty batch",
			req:     BulkEventsRequest{},
			wantErr: true,
		},
		{
			name: "one invalid entry rejects the batch",
			req: BulkEventsRequest{Events: []Event{
				{Name: "purchased"},
				{},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("BulkEventsRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvent_JSONMarshaling(t *testing.T) {
	jsonData := `{
		"name": "purchased",
		"attributes": {"order_id": "ord-1", "value": 42.5},
		"profile_attributes": {"email": "bob@example.com"}
	}`

	var evt Event
	if err := json.Unmarshal([]byte(jsonData), &evt); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if err := evt.Validate(); err != nil {
		t.Fatalf("Validation failed: %v", err)
	}

	if evt.Name != "purchased" {
		t.Errorf("Name mismatch: got %q", evt.Name)
	}
	if email, ok := evt.ProfileAttributes["email"].(string); !ok || email != "bob@example.com" {
		t.Errorf("ProfileAttributes mismatch or type loss: %v", evt.ProfileAttributes)
	}
	if id, ok := evt.Attributes["order_id"].(string); !ok || id != "ord-1" {
		t.Errorf("Attributes payload mismatch or type loss")
	}
}
