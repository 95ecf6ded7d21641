package task

// ReadyQueue is "a vector of 256 singly-linked FIFO lists indexed by
// priority" (spec §3). Enqueue appends at tail, dequeue pops head; PickNext
// scans priorities from 0 upward and returns the head of the first
// non-empty list (spec §4.2).
//
// All methods assume the caller already holds the kernel's critical
// section — mirroring ChunkedIngress's "CALLER MUST HOLD EXTERNAL MUTEX"
// convention in the eventloop package this kernel is ported from, the
// "Locked" suffix is omitted here only because every method in this type
// has that same precondition, so there is no unlocked counterpart to
// disambiguate against.
type ReadyQueue struct {
	lists [NumPriorities]fifo
	count int
}

type fifo struct {
	head, tail *TCB
}

// PushBack appends t to the tail of its current Priority's list.
func (q *ReadyQueue) PushBack(t *TCB) {
	l := &q.lists[t.Priority]
	t.Next = nil
	if l.tail == nil {
		l.head, l.tail = t, t
	} else {
		l.tail.Next = t
		l.tail = t
	}
	q.count++
}

// PopFront removes and returns the head of priority p's list, or nil if it
// is empty.
func (q *ReadyQueue) PopFront(p uint8) *TCB {
	l := &q.lists[p]
	t := l.head
	if t == nil {
		return nil
	}
	l.head = t.Next
	if l.head == nil {
		l.tail = nil
	}
	t.Next = nil
	q.count--
	return t
}

// Remove unlinks t from priority p's list if present, reporting whether it
// was found. Used when a task's priority changes while Ready: the task must
// be removed from its old list before being re-enqueued into the new one.
func (q *ReadyQueue) Remove(t *TCB, p uint8) bool {
	l := &q.lists[p]
	if l.head == nil {
		return false
	}
	if l.head == t {
		l.head = t.Next
		if l.head == nil {
			l.tail = nil
		}
		t.Next = nil
		q.count--
		return true
	}
	for n := l.head; n.Next != nil; n = n.Next {
		if n.Next == t {
			n.Next = t.Next
			if l.tail == t {
				l.tail = n
			}
			t.Next = nil
			q.count--
			return true
		}
	}
	return false
}

// PickNext scans priorities from 0 upward and pops the head of the first
// non-empty list. Returns nil, false if every list is empty.
func (q *ReadyQueue) PickNext() (*TCB, bool) {
	for p := 0; p < NumPriorities; p++ {
		if q.lists[p].head != nil {
			return q.PopFront(uint8(p)), true
		}
	}
	return nil, false
}

// Peek returns the head of priority p's list without removing it.
func (q *ReadyQueue) Peek(p uint8) *TCB {
	return q.lists[p].head
}

// Len returns the total number of tasks across every priority list.
func (q *ReadyQueue) Len() int {
	return q.count
}

// HighestReady returns the priority of the highest-priority non-empty list,
// and false if the queue is entirely empty.
func (q *ReadyQueue) HighestReady() (uint8, bool) {
	for p := 0; p < NumPriorities; p++ {
		if q.lists[p].head != nil {
			return uint8(p), true
		}
	}
	return 0, false
}
