package widget

import "sync"

// OpKind tells the event stream how to deliver an Op.
type OpKind int

const (
	OpPatch OpKind = iota
	OpAlert
	OpScroll
	OpEvent
)

// Op is one pending instruction for the browser page.
type Op struct {
	Kind     OpKind
	Selector string
	HTML     string
	Message  string
	Name     string
	Payload  any
}

// outbox queues page instructions produced by a session's Map until the
// event stream picks them up. It implements locator.View.
type outbox struct {
	mu     sync.Mutex
	ops    []Op
	notify chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

// Patch replaces the inner HTML at selector. A pending patch of the same
// selector is superseded.
func (o *outbox) Patch(selector, html string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, op := range o.ops {
		if op.Kind == OpPatch && op.Selector == selector {
			o.ops = append(o.ops[:i:i], o.ops[i+1:]...)
			break
		}
	}
	o.push(Op{Kind: OpPatch, Selector: selector, HTML: html})
}

func (o *outbox) Alert(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.push(Op{Kind: OpAlert, Message: message})
}

func (o *outbox) ScrollIntoView(selector string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.push(Op{Kind: OpScroll, Selector: selector})
}

// Send queues a named browser event.
func (o *outbox) Send(name string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.push(Op{Kind: OpEvent, Name: name, Payload: payload})
}

func (o *outbox) push(op Op) {
	o.ops = append(o.ops, op)
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Notify signals that ops are waiting.
func (o *outbox) Notify() <-chan struct{} { return o.notify }

// Drain returns and clears the pending ops.
func (o *outbox) Drain() []Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.ops
	o.ops = nil
	return out
}
