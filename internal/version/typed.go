package version

// TypedWindow is a Window over records of the concrete kind K. Its Prev, Curr, and Next methods
// return K directly; all other queries come from the embedded Window.
type TypedWindow[K Record] struct {
	Window
	prev, curr, next K
}

// NewTypedWindow binds the given versions of one entity together, under the same rules as
// NewWindow.
func NewTypedWindow[K Record](prev, curr, next K) TypedWindow[K] {
	return TypedWindow[K]{
		Window: NewWindow(prev, curr, next),
		prev:   prev,
		curr:   curr,
		next:   next,
	}
}

// Untyped returns the underlying Window.
func (w TypedWindow[K]) Untyped() Window {
	return w.Window
}

func (w TypedWindow[K]) Prev() K {
	w.mustBeBound()
	return w.prev
}

func (w TypedWindow[K]) Curr() K {
	w.mustBeBound()
	return w.curr
}

func (w TypedWindow[K]) Next() K {
	w.mustBeBound()
	return w.next
}
