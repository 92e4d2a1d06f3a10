package countdown

// Armed reports whether a tick source is active
func (c *Countdown) Armed() bool {
	return c.ticker != nil
}
