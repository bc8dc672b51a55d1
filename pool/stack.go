package pool

// workerStack is the LIFO of idle workers. Popping the most recently returned worker
// keeps hot threads busy and lets cold ones reach their idle timeout.
type workerStack struct {
	items []*Worker
}

func (s *workerStack) len() int { return len(s.items) }

func (s *workerStack) push(w *Worker) {
	s.items = append(s.items, w)
}

func (s *workerStack) pop() *Worker {
	n := len(s.items)
	if n == 0 {
		return nil
	}
	w := s.items[n-1]
	s.items[n-1] = nil
	s.items = s.items[:n-1]
	return w
}

// remove drops w from the stack and reports whether it was there.
func (s *workerStack) remove(w *Worker) bool {
	for i, item := range s.items {
		if item == w {
			copy(s.items[i:], s.items[i+1:])
			s.items[len(s.items)-1] = nil
			s.items = s.items[:len(s.items)-1]
			return true
		}
	}
	return false
}

// each calls fn for every idle worker, most recent first.
func (s *workerStack) each(fn func(*Worker)) {
	for i := len(s.items) - 1; i >= 0; i-- {
		fn(s.items[i])
	}
}
