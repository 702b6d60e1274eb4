package buffer

// Buffer is an ordered queue of outbound byte chunks that were handed to
// the connection before the socket was ready to carry them. Chunks leave
// the queue in the order they were added, possibly partially.
type Buffer struct {
	chunks [][]byte
	size   int
}

func New() *Buffer {
	return &Buffer{}
}

// Add appends a copy of p to the queue.
func (b *Buffer) Add(p []byte) {
	if len(p) == 0 {
		return
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)
}

// Len returns the number of queued bytes.
func (b *Buffer) Len() int {
	return b.size
}

// Drain writes queued chunks through write, front first, until the queue
// is empty or write reports a short write or an error. A short write
// keeps the unwritten tail at the front of the queue.
func (b *Buffer) Drain(write func(p []byte) (int, error)) error {
	for len(b.chunks) > 0 {
		head := b.chunks[0]
		n, err := write(head)
		if n > 0 {
			b.size -= n
			if n < len(head) {
				b.chunks[0] = head[n:]
			} else {
				b.chunks = b.chunks[1:]
			}
		}
		if err != nil {
			return err
		}
		if n < len(head) {
			return nil
		}
	}
	return nil
}

// Reset drops all queued bytes.
func (b *Buffer) Reset() {
	b.chunks = nil
	b.size = 0
}
