package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CategoryService manages the categories events are filed under.
type CategoryService struct {
	categories repository.CategoryStore
	logger     zerolog.Logger
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(categories repository.CategoryStore, logger zerolog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		logger:     logger.With().Str("component", "categories").Logger(),
	}
}

// CreateCategory adds a category. Names are unique.
func (s *CategoryService) CreateCategory(ctx context.Context, req model.CreateCategoryRequest) (*model.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, BadRequest("name is required")
	}

	category := &model.Category{ID: uuid.NewString(), Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("category %q already exists", name)
		}
		return nil, Internal(err, "create category")
	}
	loggerFrom(ctx, &s.logger).Info().Str("category_id", category.ID).Msg("category created")
	return category, nil
}

// GetCategory returns a single category by ID.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "category %s not found", id)
	}
	return category, nil
}

// ListCategories pages categories by name.
func (s *CategoryService) ListCategories(ctx context.Context, offset, limit int) ([]model.Category, error) {
	categories, err := s.categories.List(ctx, offset, limit)
	if err != nil {
		return nil, Internal(err, "list categories")
	}
	return categories, nil
}
