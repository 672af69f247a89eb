package mjutil

// Prealloc hands out sub-slices of one backing array so that
// a handful of small, long-lived byte strings share an allocation.
// When the backing array runs out, Pack returns its argument.
type Prealloc struct {
	free []byte
}

func NewPrealloc(backing []byte) *Prealloc {
	return &Prealloc{free: backing[:len(backing):len(backing)]}
}

func (p *Prealloc) Pack(n []byte) []byte {
	if len(n) > len(p.free) {
		return n
	}
	c := p.free[:len(n):len(n)]
	p.free = p.free[len(n):]
	copy(c, n)
	return c
}
