package history

// Stack is a LIFO sequence whose size can be trimmed at runtime.
// Position 0 is the top. The zero value is an empty stack.
type Stack[T any] struct {
	// items[len-1] is the top.
	items []T
}

// Push inserts item at position 0.
func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, item)
}

// Pop removes and returns the item at position 0.
func (s *Stack[T]) Pop() (T, error) {
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero, ErrStackEmpty
	}
	item := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return item, nil
}

// Peek returns the item at position 0 without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// At returns the item at position i, counting from the top.
func (s *Stack[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(s.items) {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1-i], true
}

// Len returns the number of items.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// Items returns a copy of the items, top first.
func (s *Stack[T]) Items() []T {
	result := make([]T, len(s.items))
	for i, item := range s.items {
		result[len(s.items)-1-i] = item
	}
	return result
}

// Trim removes items from the bottom until at most max remain and
// returns how many were removed.
func (s *Stack[T]) Trim(max int) int {
	if max < 0 {
		max = 0
	}
	excess := len(s.items) - max
	if excess <= 0 {
		return 0
	}
	kept := make([]T, max)
	copy(kept, s.items[excess:])
	s.items = kept
	return excess
}

// Clear removes all items.
func (s *Stack[T]) Clear() {
	s.items = nil
}
