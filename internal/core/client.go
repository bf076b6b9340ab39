package core

import "sync"

const defaultClientBuffer = 64

// Client is one live connection as seen by the core layer.
// The transport writes to Commands and drains Events; the hub closes Events
// once the client is unregistered.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
	}
}

// CloseCommands ends the command stream. Safe to call more than once, but
// nothing may write to Commands afterwards.
func (c *Client) CloseCommands() {
	c.closeOnce.Do(func() { close(c.Commands) })
}

// send delivers an event without blocking the relay loop.
func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
