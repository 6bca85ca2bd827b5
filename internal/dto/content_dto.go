package dto

import "github.com/noah-isme/mindful-youth-api/internal/models"

// ArticleCategory groups knowledge-base articles under one heading.
type ArticleCategory struct {
	Category string           `json:"category"`
	Articles []models.Article `json:"articles"`
}

// KnowledgeBaseResponse is the filtered knowledge base.
type KnowledgeBaseResponse struct {
	Query      string            `json:"query,omitempty"`
	Total      int               `json:"total"`
	Categories []ArticleCategory `json:"categories"`
}
