package coro

// State is the lifecycle position of a Context or Fiber.
type State uint8

const (
	// Created contexts have not been entered yet.
	Created State = iota
	// Running is the state of the one context currently executing.
	Running
	// Suspended contexts have handed control away and wait to be
	// resumed where they left off.
	Suspended
	// Finished is terminal.
	Finished
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}
