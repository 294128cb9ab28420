// Package link implements an intrusive circular doubly-linked list.
//
// A Node lives inside the record it links (an env, for example) and carries
// a typed back-reference to that record, so a queue never allocates and the
// owner of a dequeued node is recovered without address arithmetic.
//
// A queue is anchored by a sentinel Node that never holds an owner. An empty
// node points at itself in both directions.
//
// Nothing here is synchronized. Callers serialize mutation themselves; the
// kernel does it with its own lock.
package link

// Node is one link of an intrusive list.
type Node[T any] struct {
	prev  *Node[T]
	next  *Node[T]
	owner *T
}

// Init makes n an empty, self-linked node owned by owner. A sentinel is
// initialized with a nil owner.
func (n *Node[T]) Init(owner *T) {
	n.prev = n
	n.next = n
	n.owner = owner
}

// IsEmpty reports whether n is linked into nothing (or, for a sentinel,
// whether the queue is empty).
func (n *Node[T]) IsEmpty() bool {
	if n.prev == n {
		if n.next != n {
			panic("link: half-linked node")
		}
		return true
	}
	return false
}

// Owner returns the record n is embedded in.
func (n *Node[T]) Owner() *T {
	return n.owner
}

// InsertAfter splices n into the list right after pos.
func (n *Node[T]) InsertAfter(pos *Node[T]) {
	n.prev = pos
	n.next = pos.next
	n.next.prev = n
	n.prev.next = n
}

// Remove unsplices n from its list and leaves it empty. Removing an empty
// node does nothing.
func (n *Node[T]) Remove() *Node[T] {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = n
	n.next = n
	return n
}

// Enqueue appends n at the tail of the queue anchored by q.
func (q *Node[T]) Enqueue(n *Node[T]) {
	n.InsertAfter(q.prev)
}

// Head returns the first node of the queue anchored by q without removing
// it. The queue must not be empty.
func (q *Node[T]) Head() *Node[T] {
	if q.IsEmpty() {
		panic("link: head of empty queue")
	}
	return q.next
}

// Dequeue removes and returns the first node of the queue anchored by q.
// The queue must not be empty.
func (q *Node[T]) Dequeue() *Node[T] {
	return q.Head().Remove()
}

// Len walks the queue anchored by q and counts its nodes.
func (q *Node[T]) Len() int {
	l := 0
	for n := q.next; n != q; n = n.next {
		l++
	}
	return l
}

// Each calls fn with the owner of every node in the queue anchored by q,
// front to back. fn must not mutate the queue.
func (q *Node[T]) Each(fn func(*T)) {
	for n := q.next; n != q; n = n.next {
		fn(n.owner)
	}
}
