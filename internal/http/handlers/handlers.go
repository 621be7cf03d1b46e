// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (and sentinel errors) into HTTP responses.
package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/services"
)

//
// Service contracts (context-aware)
//

// FunnelService drives the conversation state machine.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type FunnelService interface {
	// Handle applies one inbound action for an identity.
	Handle(ctx context.Context, ev services.Event) (*services.Response, error)
	// Reminder replays a due reminder for identity; nil when none applies.
	Reminder(ctx context.Context, identity string) (*services.Response, error)
}

// ProfileStore exposes read access to funnel profiles and statistics.
type ProfileStore interface {
	// Get returns the profile for identity.
	Get(ctx context.Context, identity string) (*domain.UserProfile, error)
	// ListAnswers returns the answer audit log for identity, oldest first.
	ListAnswers(ctx context.Context, identity string) ([]domain.AnswerRecord, error)
	// ListPage returns a page of profiles and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.UserProfile, int64, error)
	// AggregateStats computes the funnel summary.
	AggregateStats(ctx context.Context) (*services.Stats, error)
}

//
// Handler wiring
//

// Handlers groups the funnel, profile and admin endpoints.
type Handlers struct {
	funnel FunnelService
	store  ProfileStore
}

// New constructs and returns a Handlers instance bound to the given services.
func New(funnel FunnelService, store ProfileStore) *Handlers {
	return &Handlers{funnel: funnel, store: store}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = queryInt(c, "page", defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = queryInt(c, "page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// queryInt reads an integer query parameter, falling back to def when it is
// absent or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.Query(name)); err == nil {
		return n
	}
	return def
}
