// Package model defines shared data structures for the chat service.
package model

// Message is a single turn in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document is a raw unit of ingested source material before chunking.
// Web pages produce one Document each, PDFs produce one per page.
type Document struct {
	// Source is the URL the content was fetched from.
	Source string `json:"source"`

	// Title is the page title or file name when available.
	Title string `json:"title,omitempty"`

	// Page is the 1-based page number for PDF sources, 0 for web pages.
	Page int `json:"page,omitempty"`

	// Content is the extracted plain text.
	Content string `json:"content"`
}

// AskRequest is the request body of the ask endpoint.
type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// AskResponse is the response body of the ask endpoint.
type AskResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// SessionResponse carries a newly minted session identifier.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// HistoryResponse carries the full ordered history of one session.
type HistoryResponse struct {
	SessionID string    `json:"session_id"`
	History   []Message `json:"history"`
}

// SessionListResponse lists known session identifiers.
type SessionListResponse struct {
	Sessions []string `json:"sessions"`
}

// ErrorResponse is the uniform error body for the HTTP surface.
type ErrorResponse struct {
	Error string `json:"error"`
}
