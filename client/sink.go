package client

import "agentchat/protocol"

// EventSink receives the events of one stream, synchronously and in order
type EventSink interface {
	HandleEvent(protocol.Event)
}

// SinkFunc adapts a plain function to EventSink
type SinkFunc func(protocol.Event)

func (f SinkFunc) HandleEvent(ev protocol.Event) { f(ev) }
