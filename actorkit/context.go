package actorkit

// Context carries everything an Actor needs while handling one message.
type Context interface {
	Engine() *Engine
	Self() *PID
	Sender() *PID
	Message() interface{}
	// RequestID is non-empty when this message arrived via Engine.Ask;
	// Reply must be called exactly once in that case.
	RequestID() string
	Reply(msg interface{})
}

type context struct {
	engine  *Engine
	self    *PID
	sender  *PID
	message interface{}
	env     *messageEnvelope
}

func (c *context) Engine() *Engine      { return c.engine }
func (c *context) Self() *PID           { return c.self }
func (c *context) Sender() *PID         { return c.sender }
func (c *context) Message() interface{} { return c.message }

func (c *context) RequestID() string {
	if c.env == nil {
		return ""
	}
	return c.env.requestID
}

func (c *context) Reply(msg interface{}) {
	if c.env == nil || c.env.replyTo == nil {
		return
	}
	select {
	case c.env.replyTo <- msg:
	default:
	}
}
