package service

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/models"
)

const contentCacheTTL = 10 * time.Minute

//go:embed content/knowledge_base.yaml content/resources.yaml
var contentFS embed.FS

// ContentService serves the static knowledge base and resource directory.
type ContentService interface {
	KnowledgeBase(ctx context.Context, query string) (dto.KnowledgeBaseResponse, error)
	Resources(ctx context.Context) ([]models.Resource, error)
}

type contentService struct {
	articles    []models.Article
	resources   []models.Resource
	redis       *redis.Client
	cachePrefix string
	logger      zerolog.Logger
}

// NewContentService parses the embedded content. redisClient, when set, caches search results.
func NewContentService(redisClient *redis.Client, cachePrefix string, logger zerolog.Logger) (ContentService, error) {
	var kb struct {
		Articles []models.Article `yaml:"articles"`
	}
	if err := decodeContent("content/knowledge_base.yaml", &kb); err != nil {
		return nil, err
	}

	var res struct {
		Resources []models.Resource `yaml:"resources"`
	}
	if err := decodeContent("content/resources.yaml", &res); err != nil {
		return nil, err
	}

	if cachePrefix == "" {
		cachePrefix = "mindful"
	}

	return &contentService{
		articles:    kb.Articles,
		resources:   res.Resources,
		redis:       redisClient,
		cachePrefix: cachePrefix + ":kb:",
		logger:      logger.With().Str("component", "content_service").Logger(),
	}, nil
}

func decodeContent(path string, target interface{}) error {
	raw, err := contentFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// KnowledgeBase filters articles by a case-insensitive match on title or content and
// groups them by category in first-appearance order.
func (s *contentService) KnowledgeBase(ctx context.Context, query string) (dto.KnowledgeBaseResponse, error) {
	query = strings.TrimSpace(query)
	needle := strings.ToLower(query)
	cacheKey := s.cachePrefix + needle

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var response dto.KnowledgeBaseResponse
			if err := json.Unmarshal(cached, &response); err == nil {
				response.Query = query
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Debug().Err(err).Msg("knowledge base cache read failed")
		}
	}

	response := dto.KnowledgeBaseResponse{Query: query, Categories: []dto.ArticleCategory{}}
	index := make(map[string]int)
	for _, article := range s.articles {
		if needle != "" &&
			!strings.Contains(strings.ToLower(article.Title), needle) &&
			!strings.Contains(strings.ToLower(article.Content), needle) {
			continue
		}

		pos, ok := index[article.Category]
		if !ok {
			pos = len(response.Categories)
			index[article.Category] = pos
			response.Categories = append(response.Categories, dto.ArticleCategory{Category: article.Category})
		}
		response.Categories[pos].Articles = append(response.Categories[pos].Articles, article)
		response.Total++
	}

	if s.redis != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.redis.Set(ctx, cacheKey, payload, contentCacheTTL).Err(); err != nil {
				s.logger.Debug().Err(err).Msg("knowledge base cache write failed")
			}
		}
	}

	return response, nil
}

func (s *contentService) Resources(context.Context) ([]models.Resource, error) {
	out := make([]models.Resource, len(s.resources))
	copy(out, s.resources)
	return out, nil
}
