package dto

import "pdfchat-be/pkg/rag"

type SendChatRequest struct {
	// emptiness is checked by the chat layer so whitespace counts as empty too
	Message string `json:"message" validate:"max=32000"`
}

type SendChatResponse struct {
	Reply     string       `json:"reply"`
	Timestamp string       `json:"timestamp"`
	HasPDF    bool         `json:"has_pdf"`
	Mode      string       `json:"mode"`
	Sources   []rag.Source `json:"sources,omitempty"`
}
