package presence

// Topics group live-channel traffic by feature. A connected client subscribes
// implicitly to all topics; the topic is part of the wire frame so clients can
// dispatch without inspecting payloads.
const (
	TopicCalls    = "calls"
	TopicMessages = "messages"
	TopicCommands = "commands"
	TopicPhone    = "phone"
)

// Event types carried on the live channel. Keep these stable; the mobile and
// desktop clients switch on them.
const (
	EventCallIncoming   = "syncflow_call_incoming"
	EventCallStatus     = "syncflow_call_status"
	EventCallSignal     = "syncflow_call_signal"
	EventCommandPending = "syncflow_command_pending"
	EventCommandStatus  = "syncflow_command_status"
)

// Event is the envelope delivered to a live channel: {type, data}.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Envelope is the cross-process fan-out unit carried over the Bus. It targets
// all live devices of one account, optionally excluding a single device so an
// originator does not receive its own echo.
type Envelope struct {
	AccountID       string `json:"account_id"`
	ExcludeDeviceID string `json:"exclude_device_id,omitempty"`
	Topic           string `json:"topic"`
	Event           Event  `json:"event"`
}
