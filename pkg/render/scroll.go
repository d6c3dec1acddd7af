package render

// Scroller is a scrollable message container measured in its own units
// (pixels in a browser, lines in a terminal viewport).
type Scroller interface {
	ScrollTop() int
	ScrollHeight() int
	ClientHeight() int
	SetScrollTop(int)
}

// AtBottom reports whether s is scrolled to within one unit of its bottom.
func AtBottom(s Scroller) bool {
	return s.ScrollHeight()-s.ClientHeight() <= s.ScrollTop()+1
}

// Follow runs update and keeps the container pinned to the bottom if, and only if,
// it was pinned before the update. A user who scrolled up keeps their position.
func Follow(s Scroller, update func()) bool {
	pinned := AtBottom(s)
	update()
	if pinned {
		s.SetScrollTop(s.ScrollHeight())
	}
	return pinned
}
