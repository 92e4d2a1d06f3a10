package canvas

import "image"

// Anchored reports whether a live stroke is in progress
func (r *Replicator) Anchored() bool {
	return r.live != nil
}

// Pixels returns a copy of the raw RGBA bytes
func (s *RasterSurface) Pixels() []byte {
	rgba, ok := s.ctx.Image().(*image.RGBA)
	if !ok {
		return nil
	}
	out := make([]byte, len(rgba.Pix))
	copy(out, rgba.Pix)
	return out
}
