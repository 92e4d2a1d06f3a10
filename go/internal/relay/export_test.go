package relay

// SessionID identifies this client in published headers
func (r *Relay) SessionID() string {
	return r.sessionID
}
