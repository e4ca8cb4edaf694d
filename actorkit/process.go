package actorkit

import (
	"fmt"
	"runtime/debug"
)

const defaultMailboxSize = 256

// process is the running instance of a spawned actor: its own goroutine,
// mailbox and lifecycle state.
type process struct {
	engine  *Engine
	pid     *PID
	actor   Actor
	mailbox chan *messageEnvelope
	props   *Props
	stopCh  chan struct{}
	stopped bool
}

func newProcess(engine *Engine, pid *PID, props *Props) *process {
	return &process{
		engine:  engine,
		pid:     pid,
		props:   props,
		mailbox: make(chan *messageEnvelope, defaultMailboxSize),
		stopCh:  make(chan struct{}),
	}
}

func (p *process) sendMessage(env *messageEnvelope) {
	select {
	case p.mailbox <- env:
	default:
		fmt.Printf("actorkit: actor %s mailbox full, dropping message of type %T\n", p.pid, env.message)
	}
}

func (p *process) run() {
	defer func() {
		p.stopped = true
		p.invokeReceive(Stopped{}, nil, nil)
		p.engine.remove(p.pid)
	}()

	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("actorkit: actor %s panicked: %v\n%s\n", p.pid, r, string(debug.Stack()))
			p.stopped = true
		}
	}()

	p.actor = p.props.produce()
	if p.actor == nil {
		panic(fmt.Sprintf("actorkit: producer for %s returned a nil actor", p.pid))
	}

	for {
		select {
		case <-p.stopCh:
			if !p.stopped {
				// stopCh won the select over the queued Stopping message;
				// deliver it here so Stopping always precedes Stopped.
				p.stopped = true
				p.invokeReceive(Stopping{}, nil, nil)
			}
			return
		case env := <-p.mailbox:
			if p.stopped {
				continue
			}
			switch msg := env.message.(type) {
			case Started:
				p.invokeReceive(msg, env.sender, env)
			case Stopping:
				p.stopped = true
				p.invokeReceive(msg, env.sender, env)
				closeOnce(p.stopCh)
			default:
				p.invokeReceive(env.message, env.sender, env)
			}
		}
	}
}

func (p *process) invokeReceive(msg interface{}, sender *PID, env *messageEnvelope) {
	ctx := &context{engine: p.engine, self: p.pid, sender: sender, message: msg, env: env}
	p.actor.Receive(ctx)
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
