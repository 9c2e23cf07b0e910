package engine

// PlayerCursor exposes the replay cursor of p's loaded sequence.
func PlayerCursor(p *Player) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq == nil {
		return 0
	}
	return p.seq.Cursor()
}
