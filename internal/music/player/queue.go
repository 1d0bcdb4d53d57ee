package player

import (
	"math/rand"
	"slices"
)

// queue is the pending-track list. Not safe for concurrent use; the Player
// guards it with its own mutex.
type queue struct {
	items []Track
}

func (q *queue) add(tracks ...Track) {
	q.items = append(q.items, tracks...)
}

// addNext inserts tracks at the front, before everything already pending.
func (q *queue) addNext(tracks ...Track) {
	q.items = append(slices.Clone(tracks), q.items...)
}

func (q *queue) popNext() (Track, bool) {
	if len(q.items) == 0 {
		return Track{}, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

func (q *queue) clear() {
	q.items = nil
}

func (q *queue) shuffle() {
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

func (q *queue) len() int {
	return len(q.items)
}

func (q *queue) snapshot() []Track {
	return slices.Clone(q.items)
}
