package events

// Sink represents something that can consume dispatch events.
type Sink interface {
	EmitDispatchStart(dispatchID, action string)
	EmitArgumentResolved(dispatchID, name string, value interface{}, source string)
	EmitConfirm(dispatchID string, accepted bool)
	EmitHandlerLog(dispatchID, handler, channel, message string)
	EmitDispatchFinish(dispatchID, handler, status string, err error)
}

// CompositeSink fan-outs emitted events to multiple sinks.
type CompositeSink struct {
	sinks []Sink
}

// NewCompositeSink returns a sink that forwards events to all provided sinks.
func NewCompositeSink(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil && !isNilEmitter(s) {
			filtered = append(filtered, s)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &CompositeSink{sinks: filtered}
	}
}

// NewEmitter returns a nil *Emitter for a nil writer; that typed nil must not
// end up inside the composite.
func isNilEmitter(s Sink) bool {
	e, ok := s.(*Emitter)
	return ok && e == nil
}

func (c *CompositeSink) EmitDispatchStart(dispatchID, action string) {
	for _, s := range c.sinks {
		s.EmitDispatchStart(dispatchID, action)
	}
}

func (c *CompositeSink) EmitArgumentResolved(dispatchID, name string, value interface{}, source string) {
	for _, s := range c.sinks {
		s.EmitArgumentResolved(dispatchID, name, value, source)
	}
}

func (c *CompositeSink) EmitConfirm(dispatchID string, accepted bool) {
	for _, s := range c.sinks {
		s.EmitConfirm(dispatchID, accepted)
	}
}

func (c *CompositeSink) EmitHandlerLog(dispatchID, handler, channel, message string) {
	for _, s := range c.sinks {
		s.EmitHandlerLog(dispatchID, handler, channel, message)
	}
}

func (c *CompositeSink) EmitDispatchFinish(dispatchID, handler, status string, err error) {
	for _, s := range c.sinks {
		s.EmitDispatchFinish(dispatchID, handler, status, err)
	}
}
