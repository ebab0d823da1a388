//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"net/http"
)

// OpenAPISpec represents the OpenAPI v3 specification.
type OpenAPISpec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       OpenAPIInfo            `json:"info"`
	Servers    []OpenAPIServer        `json:"servers"`
	Paths      map[string]OpenAPIPath `json:"paths"`
	Components OpenAPIComponents      `json:"components"`
}

// OpenAPIInfo contains API metadata.
type OpenAPIInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// OpenAPIServer describes a server.
type OpenAPIServer struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// OpenAPIPath contains operations for a path.
type OpenAPIPath struct {
	Get    *OpenAPIOperation `json:"get,omitempty"`
	Post   *OpenAPIOperation `json:"post,omitempty"`
	Put    *OpenAPIOperation `json:"put,omitempty"`
	Delete *OpenAPIOperation `json:"delete,omitempty"`
}

// OpenAPIOperation describes an API operation.
type OpenAPIOperation struct {
	Summary     string                     `json:"summary"`
	Description string                     `json:"description,omitempty"`
	OperationID string                     `json:"operationId"`
	Tags        []string                   `json:"tags,omitempty"`
	Parameters  []OpenAPIParameter         `json:"parameters,omitempty"`
	RequestBody *OpenAPIRequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]OpenAPIResponse `json:"responses"`
}

// OpenAPIParameter describes a parameter.
type OpenAPIParameter struct {
	Name        string        `json:"name"`
	In          string        `json:"in"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required"`
	Schema      OpenAPISchema `json:"schema"`
}

// OpenAPIRequestBody describes a request body.
type OpenAPIRequestBody struct {
	Description string                      `json:"description,omitempty"`
	Required    bool                        `json:"required"`
	Content     map[string]OpenAPIMediaType `json:"content"`
}

// OpenAPIResponse describes a response.
type OpenAPIResponse struct {
	Description string                      `json:"description"`
	Content     map[string]OpenAPIMediaType `json:"content,omitempty"`
}

// OpenAPIMediaType describes a media type.
type OpenAPIMediaType struct {
	Schema OpenAPISchema `json:"schema"`
}

// OpenAPISchema describes a schema.
type OpenAPISchema struct {
	Type        string                   `json:"type,omitempty"`
	Format      string                   `json:"format,omitempty"`
	Description string                   `json:"description,omitempty"`
	Properties  map[string]OpenAPISchema `json:"properties,omitempty"`
	Items       *OpenAPISchema           `json:"items,omitempty"`
	Required    []string                 `json:"required,omitempty"`
	Default     any                      `json:"default,omitempty"`
	Ref         string                   `json:"$ref,omitempty"`
}

// OpenAPIComponents contains reusable components.
type OpenAPIComponents struct {
	Schemas map[string]OpenAPISchema `json:"schemas"`
}

// handleOpenAPI handles the GET /v1/openapi.json endpoint.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	spec := BuildOpenAPISpec()
	s.respondJSON(w, http.StatusOK, spec)
}

// BuildOpenAPISpec constructs the OpenAPI v3 specification.
// This is exported so it can be used to generate static documentation.
func BuildOpenAPISpec() OpenAPISpec {
	return OpenAPISpec{
		OpenAPI: "3.0.3",
		Info: OpenAPIInfo{
			Title:       "HybridRAG Core API",
			Description: "OpenAI-compatible chat-completions surface over a hybrid dense/lexical retriever, a citation-rewriting RAG engine, and course/QCM multi-agent orchestrators",
			Version:     "1.0.0",
		},
		Servers: []OpenAPIServer{
			{
				URL:         "/",
				Description: "default",
			},
		},
		Paths: map[string]OpenAPIPath{
			"/healthz": {
				Get: &OpenAPIOperation{
					Summary:     "Health check",
					Description: "Check if the server is running and healthy",
					OperationID: "getHealth",
					Tags:        []string{"System"},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Server is healthy",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{Ref: "#/components/schemas/HealthResponse"},
								},
							},
						},
					},
				},
			},
			"/rag/api/models":              featurePath("RAG", "RAG answer generation over a hybrid-retrieved context"),
			"/course/api/models":           featurePath("Course", "Multi-agent course generation"),
			"/qcm/api/models":              featurePath("QCM", "Multi-agent multiple-choice question generation"),
			"/rag/api/chat/completions":    chatPath("RAG", "rag", "Answers a question by retrieving context and streaming a cited completion"),
			"/course/api/chat/completions": chatPath("Course", "course", "Generates a full course document from a subject, researched and written by a multi-agent pipeline"),
			"/qcm/api/chat/completions":    chatPath("QCM", "qcm", "Collects topic/difficulty/count conversationally, then generates multiple-choice questions"),
		},
		Components: OpenAPIComponents{
			Schemas: map[string]OpenAPISchema{
				"HealthResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"status": {Type: "string", Description: "Health status"},
					},
					Required: []string{"status"},
				},
				"ModelObject": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"id":       {Type: "string", Description: "Collection name, usable as the chat-completions model field"},
						"object":   {Type: "string"},
						"owned_by": {Type: "string"},
					},
					Required: []string{"id", "object", "owned_by"},
				},
				"ModelsResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"object": {Type: "string"},
						"data":   {Type: "array", Items: &OpenAPISchema{Ref: "#/components/schemas/ModelObject"}},
					},
					Required: []string{"object", "data"},
				},
				"Message": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"role":    {Type: "string", Description: "Message role (user or assistant)"},
						"content": {Type: "string", Description: "Message content"},
					},
					Required: []string{"role", "content"},
				},
				"ChatCompletionRequest": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"model": {Type: "string", Description: "Collection name from the corresponding /api/models listing"},
						"messages": {
							Type:        "array",
							Description: "Conversation history; the last user message is the query (RAG/course) or the latest parameter-collection turn (QCM)",
							Items:       &OpenAPISchema{Ref: "#/components/schemas/Message"},
						},
						"stream": {Type: "boolean", Description: "Enable Server-Sent Events streaming", Default: false},
						"top_k":  {Type: "integer", Description: "RAG-only: override the default number of retrieved chunks"},
					},
					Required: []string{"model", "messages"},
				},
				"ChatCompletionChoice": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"index":         {Type: "integer"},
						"message":       {Ref: "#/components/schemas/Message"},
						"finish_reason": {Type: "string"},
					},
				},
				"ChatCompletionResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"id":      {Type: "string"},
						"object":  {Type: "string"},
						"created": {Type: "integer", Format: "int64"},
						"model":   {Type: "string"},
						"choices": {Type: "array", Items: &OpenAPISchema{Ref: "#/components/schemas/ChatCompletionChoice"}},
					},
					Required: []string{"id", "object", "created", "model", "choices"},
				},
				"ErrorResponse": {
					Type:       "object",
					Properties: map[string]OpenAPISchema{"error": {Ref: "#/components/schemas/ErrorDetail"}},
					Required:   []string{"error"},
				},
				"ErrorDetail": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"code":    {Type: "string", Description: "Error code, e.g. unknown_collection, auth_missing, retrieval_unavailable"},
						"message": {Type: "string", Description: "Human-readable error message"},
					},
					Required: []string{"code", "message"},
				},
			},
		},
	}
}

// featurePath builds the GET .../api/models path entry shared by the
// three feature surfaces; they differ only in tag and description.
func featurePath(tag, description string) OpenAPIPath {
	return OpenAPIPath{
		Get: &OpenAPIOperation{
			Summary:     "List available collections",
			Description: description,
			OperationID: "list" + tag + "Models",
			Tags:        []string{tag},
			Responses: map[string]OpenAPIResponse{
				"200": {
					Description: "Collections usable as the model field",
					Content: map[string]OpenAPIMediaType{
						"application/json": {Schema: OpenAPISchema{Ref: "#/components/schemas/ModelsResponse"}},
					},
				},
			},
		},
	}
}

// chatPath builds the POST .../api/chat/completions path entry shared by
// the three feature surfaces.
func chatPath(tag, operationSlug, description string) OpenAPIPath {
	return OpenAPIPath{
		Post: &OpenAPIOperation{
			Summary:     description,
			OperationID: "create" + tag + "ChatCompletion",
			Tags:        []string{tag},
			RequestBody: &OpenAPIRequestBody{
				Description: "Chat-completions request",
				Required:    true,
				Content: map[string]OpenAPIMediaType{
					"application/json": {Schema: OpenAPISchema{Ref: "#/components/schemas/ChatCompletionRequest"}},
				},
			},
			Responses: map[string]OpenAPIResponse{
				"200": {
					Description: "Chat completion, buffered or streamed as chat.completion.chunk SSE frames",
					Content: map[string]OpenAPIMediaType{
						"application/json":  {Schema: OpenAPISchema{Ref: "#/components/schemas/ChatCompletionResponse"}},
						"text/event-stream": {Schema: OpenAPISchema{Type: "string", Description: "OpenAI-compatible chat.completion.chunk SSE stream"}},
					},
				},
				"400": {
					Description: "Malformed request or unknown collection",
					Content:     map[string]OpenAPIMediaType{"application/json": {Schema: OpenAPISchema{Ref: "#/components/schemas/ErrorResponse"}}},
				},
				"401": {
					Description: "Missing or invalid bearer token",
					Content:     map[string]OpenAPIMediaType{"application/json": {Schema: OpenAPISchema{Ref: "#/components/schemas/ErrorResponse"}}},
				},
				"500": {
					Description: "Server error",
					Content:     map[string]OpenAPIMediaType{"application/json": {Schema: OpenAPISchema{Ref: "#/components/schemas/ErrorResponse"}}},
				},
			},
		},
	}
}
