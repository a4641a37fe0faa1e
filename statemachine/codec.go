package statemachine

import (
	"encoding/json"
	"fmt"

	"sectionrouting/messages"
)

// decodeMessage parses a wire-encoded Message, produced by either
// messages.Encode (Direct, unsigned traffic) or messages.EncodeWire
// (routed traffic, signatures included) — both are plain JSON of the same
// struct, so one decoder serves both.
func decodeMessage(b []byte) (messages.Message, error) {
	var msg messages.Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return messages.Message{}, fmt.Errorf("statemachine: decode message: %w", err)
	}
	return msg, nil
}
