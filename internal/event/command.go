package event

import "encoding/json"

// Inbound command types.
const (
	CmdSubscribeDelivery   = "subscribe_delivery"
	CmdUnsubscribeDelivery = "unsubscribe_delivery"
	CmdPing                = "ping"
)

// Command is an inbound client frame.
type Command struct {
	Type       string `json:"type"`
	DeliveryID int64  `json:"delivery_id"`
}

// ParseCommand decodes an inbound frame. A non-nil error means the frame was
// not parseable and the connection should be closed with a protocol error;
// unknown Type values are the caller's decision (ignored, per protocol).
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
