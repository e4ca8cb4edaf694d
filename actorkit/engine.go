package actorkit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Engine owns the lifecycle of every actor process and routes messages
// between them. The Supervisor itself is not an actor (it drives its own
// single-threaded loop, see the supervisor package) but it spawns and
// addresses Game actors through an Engine exactly the way the teacher's
// RoomManagerActor spawns GameActor/PaddleActor/BallActor. Players are not
// actors: each runs as a plain goroutine that reports to its Game through
// Engine.Send.
type Engine struct {
	pidCounter uint64
	actors     map[string]*process
	mu         sync.RWMutex
	stopping   atomic.Bool
}

// NewEngine creates an empty Engine.
func NewEngine() *Engine {
	return &Engine{actors: make(map[string]*process)}
}

func (e *Engine) nextPID() *PID {
	id := atomic.AddUint64(&e.pidCounter, 1)
	return &PID{ID: fmt.Sprintf("actor-%d", id)}
}

// Spawn starts a new actor and returns its PID, or nil if the engine is
// shutting down.
func (e *Engine) Spawn(props *Props) *PID {
	if e.stopping.Load() {
		return nil
	}
	pid := e.nextPID()
	proc := newProcess(e, pid, props)

	e.mu.Lock()
	e.actors[pid.ID] = proc
	e.mu.Unlock()

	go proc.run()
	e.Send(pid, Started{}, nil)
	return pid
}

// Send delivers a fire-and-forget message to pid. Messages to unknown or
// already-stopped actors are silently dropped, matching the teacher's
// Engine.Send.
func (e *Engine) Send(pid *PID, message interface{}, sender *PID) {
	if pid == nil {
		return
	}
	_, isStopping := message.(Stopping)
	_, isStopped := message.(Stopped)
	_, isStarted := message.(Started)
	if e.stopping.Load() && !isStopping && !isStopped && !isStarted {
		return
	}

	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()
	if ok {
		proc.sendMessage(&messageEnvelope{sender: sender, message: message})
	}
}

// Ask sends a message and blocks until the actor calls ctx.Reply or timeout
// elapses. Shutting the engine down does not end the wait early.
func (e *Engine) Ask(pid *PID, message interface{}, timeout time.Duration) (interface{}, error) {
	if pid == nil {
		return nil, fmt.Errorf("actorkit: ask on nil pid")
	}
	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("actorkit: actor %s not found", pid)
	}

	reply := make(chan interface{}, 1)
	proc.sendMessage(&messageEnvelope{
		message:   message,
		requestID: e.nextPID().ID,
		replyTo:   reply,
	})

	select {
	case v := <-reply:
		return v, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// Stop requests pid to shut down: it first receives Stopping, giving it a
// chance to clean up, then its run loop is forced to exit.
func (e *Engine) Stop(pid *PID) {
	if pid == nil {
		return
	}
	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()
	if !ok {
		return
	}
	e.Send(pid, Stopping{}, nil)
	closeOnce(proc.stopCh)
}

func (e *Engine) remove(pid *PID) {
	e.mu.Lock()
	delete(e.actors, pid.ID)
	e.mu.Unlock()
}

// Count returns the number of live actors, mostly useful from tests.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.actors)
}

// Shutdown stops every actor and waits up to timeout for them to exit.
func (e *Engine) Shutdown(timeout time.Duration) {
	if !e.stopping.CompareAndSwap(false, true) {
		return
	}

	e.mu.RLock()
	pids := make([]*PID, 0, len(e.actors))
	for _, proc := range e.actors {
		pids = append(pids, proc.pid)
	}
	e.mu.RUnlock()

	for _, pid := range pids {
		e.Stop(pid)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.RLock()
		remaining := len(e.actors)
		e.mu.RUnlock()
		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.mu.Lock()
	e.actors = make(map[string]*process)
	e.mu.Unlock()
}
