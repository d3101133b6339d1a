package visual

// Notifier is a display that only signals that a new frame is ready, for
// front ends that read the surface themselves.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

func (n *Notifier) C() <-chan struct{} {
	return n.ch
}

func (n *Notifier) Draw([]Cell) error {
	select {
	case n.ch <- struct{}{}:
	default:
	}
	return nil
}
