package sched

const arenaChunk = 128

// arena hands out tick-scoped objects from fixed-size chunks. reset zeroes
// every handed-out slot (dropping closure references for the GC) and keeps
// the chunks for the next tick, so a scheduler reused across ticks stops
// allocating once it has seen its largest tick.
type arena[T any] struct {
	chunks [][]T
	chunk  int // index of the chunk being filled
	used   int // slots used in that chunk
}

func (a *arena[T]) alloc() *T {
	if a.chunk == len(a.chunks) {
		a.chunks = append(a.chunks, make([]T, arenaChunk))
	}
	c := a.chunks[a.chunk]
	p := &c[a.used]
	a.used++
	if a.used == arenaChunk {
		a.chunk++
		a.used = 0
	}
	return p
}

// len is the number of live slots.
func (a *arena[T]) len() int { return a.chunk*arenaChunk + a.used }

func (a *arena[T]) reset() {
	var zero T
	for i := 0; i <= a.chunk && i < len(a.chunks); i++ {
		n := arenaChunk
		if i == a.chunk {
			n = a.used
		}
		c := a.chunks[i]
		for j := 0; j < n; j++ {
			c[j] = zero
		}
	}
	a.chunk = 0
	a.used = 0
}
