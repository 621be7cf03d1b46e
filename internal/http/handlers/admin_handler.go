package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vibe-compass/internal/domain"
)

// ListProfilesResponse wraps a page of profiles and pagination information.
type ListProfilesResponse struct {
	Profiles   []domain.UserProfile `json:"profiles"`
	Pagination Pagination           `json:"pagination"`
}

// Stats godoc
// @ID          funnelStats
// @Summary     Funnel statistics
// @Description Total and completed profiles, completion rate, pain point and conversion status distributions.
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  false "Admin token (when configured)"
// @Success     200  {object}  services.Stats
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	st, err := h.store.AggregateStats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// ListProfiles godoc
// @ID          listProfiles
// @Summary     List profiles (paginated)
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  false "Admin token (when configured)"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListProfilesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/profiles [get]
func (h *Handlers) ListProfiles(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.store.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.UserProfile{}
	}
	ok(c, http.StatusOK, ListProfilesResponse{
		Profiles:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}
