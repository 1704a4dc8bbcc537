package drowsiness

// Window is a fixed-capacity FIFO of recent raw EAR values.
type Window struct {
	values []float64
	size   int
	last   float64
}

// NewWindow creates a window holding at most size values. Sizes below 1 are
// treated as 1.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{
		values: make([]float64, 0, size),
		size:   size,
	}
}

// Push appends a raw value, evicting the oldest one when full.
func (w *Window) Push(v float64) {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
	w.last = v
}

// Value returns the mean of the window once it is full, otherwise the most
// recently pushed raw value. An empty window yields 0.
func (w *Window) Value() float64 {
	if len(w.values) == 0 {
		return 0
	}
	if !w.Smoothed() {
		return w.last
	}
	sum := 0.0
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

// Smoothed reports whether the window is full.
func (w *Window) Smoothed() bool {
	return len(w.values) == w.size
}

// Len returns the number of buffered values.
func (w *Window) Len() int {
	return len(w.values)
}

// Size returns the window capacity.
func (w *Window) Size() int {
	return w.size
}

// Reset drops all buffered values.
func (w *Window) Reset() {
	w.values = w.values[:0]
	w.last = 0
}
