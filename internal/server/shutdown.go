package server

import "context"

// Shutdown closes WebSocket clients first so their disconnects are processed,
// then stops the HTTP server. Only the first call does any work; later calls
// return its result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Server shutting down")

		if s.deps.Bridge != nil {
			if err := s.deps.Bridge.Shutdown(ctx); err != nil {
				s.logger.Warn("WebSocket clients did not close in time", "error", err)
			}
		}
		s.shutdownErr = s.E.Shutdown(ctx)
	})
	return s.shutdownErr
}
