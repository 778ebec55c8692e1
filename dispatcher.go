package main

// dispatchMessage hands one framed server packet to the session's
// dispatcher. Packets are processed in order, one at a time.
func (s *session) dispatchMessage(m []byte) {
	if len(m) < 2 {
		return
	}
	s.packets++
	s.bytes += len(m)
	logDebugPacket("recv", m)
	s.dispatch.Dispatch(m)
}
