package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowTriggers labels trigger transitions with their trigger.
	ShowTriggers bool

	// ShowConditions labels conditional transitions with their expression.
	ShowConditions bool

	// ShowAgeTransitions includes age transitions, labelled with their max age.
	ShowAgeTransitions bool

	// MarkCurrent styles the definition's current state.
	MarkCurrent bool

	// Direction controls diagram flow: "TB" (top to bottom) or "LR" (left to right).
	Direction string

	// HighlightPath highlights a specific state path through the diagram.
	HighlightPath []string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowTriggers:       true,
		ShowConditions:     true,
		ShowAgeTransitions: true,
		MarkCurrent:        true,
		Direction:          "TB",
	}
}

// WithShowTriggers enables/disables trigger labels.
func (o Options) WithShowTriggers(show bool) Options {
	o.ShowTriggers = show

	return o
}

// WithShowConditions enables/disables condition labels.
func (o Options) WithShowConditions(show bool) Options {
	o.ShowConditions = show

	return o
}

// WithShowAgeTransitions enables/disables age transitions.
func (o Options) WithShowAgeTransitions(show bool) Options {
	o.ShowAgeTransitions = show

	return o
}

// WithMarkCurrent enables/disables current state styling.
func (o Options) WithMarkCurrent(mark bool) Options {
	o.MarkCurrent = mark

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}
