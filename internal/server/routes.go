//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /v1/openapi.json", s.handleOpenAPI)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /rag/api/models", s.requireAuth(s.handleModels(featureRAG)))
	s.mux.HandleFunc("POST /rag/api/chat/completions", s.requireAuth(s.handleRAGChat))

	s.mux.HandleFunc("GET /course/api/models", s.requireAuth(s.handleModels(featureCourse)))
	s.mux.HandleFunc("POST /course/api/chat/completions", s.requireAuth(s.handleCourseChat))

	s.mux.HandleFunc("GET /qcm/api/models", s.requireAuth(s.handleModels(featureQCM)))
	s.mux.HandleFunc("POST /qcm/api/chat/completions", s.requireAuth(s.handleQCMChat))
}
