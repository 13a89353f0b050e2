package api

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler.HealthCheck)

	lanes := s.router.Group("/lanes")
	{
		lanes.GET("", s.lanesHandler.Current)
		lanes.POST("/refresh", s.lanesHandler.Refresh)
		lanes.GET("/diagnostics", s.lanesHandler.Diagnostics)
		lanes.GET("/fallback", s.lanesHandler.Fallback)
		lanes.GET("/zone.png", s.lanesHandler.ZonePreview)
	}
}
