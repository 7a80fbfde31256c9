package model

// Status is the connection state shown in the sidebar. Exactly one holds at a
// time and it alone decides whether input is accepted.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusStreaming
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected (SSE)"
	case StatusStreaming:
		return "Streaming..."
	default:
		return "Disconnected"
	}
}

// AcceptsInput reports whether a prompt can be sent in this state
func (s Status) AcceptsInput() bool {
	return s == StatusConnected
}
