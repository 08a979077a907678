package pairing

import "slices"

// Queue is the waiting room: connection ids in arrival order.
type Queue struct {
	ids []string
}

// Push appends id. When that leaves an even number waiting, the two oldest
// entries are removed and returned as a pair.
func (q *Queue) Push(id string) (a, b string, paired bool) {
	q.ids = append(q.ids, id)
	if len(q.ids)%2 != 0 {
		return "", "", false
	}
	a, b = q.ids[0], q.ids[1]
	q.ids = q.ids[2:]
	return a, b, true
}

// Remove drops id from the queue if it is waiting.
func (q *Queue) Remove(id string) bool {
	i := slices.Index(q.ids, id)
	if i < 0 {
		return false
	}
	q.ids = slices.Delete(q.ids, i, i+1)
	return true
}

func (q *Queue) Len() int { return len(q.ids) }
