package response

// Event names.
const (
	EventMorphing = "response.morphing"
	EventMorphed  = "response.morphed"
)

// MorphingEvent is published before the content is transformed.
type MorphingEvent struct {
	Response *Response
	Content  any
}

// Name implements events.Event.
func (e *MorphingEvent) Name() string { return EventMorphing }

// MorphedEvent is published after transformation and after the formatter's
// content type was applied, before the body is rendered.
type MorphedEvent struct {
	Response *Response
	Content  any
}

// Name implements events.Event.
func (e *MorphedEvent) Name() string { return EventMorphed }
