package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/services"
)

// AnswersResponse lists the answer audit log of one profile.
type AnswersResponse struct {
	Identity string                `json:"identity"`
	Answers  []domain.AnswerRecord `json:"answers"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get a profile
// @Tags        Profiles
// @Produce     json
// @Param       X-Admin-Token  header  string  false "Admin token (when configured)"
// @Param       identity       path    string  true  "Chat identity"  example(123456789)
// @Success     200  {object}  domain.UserProfile
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profiles/{identity} [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("identity"))
	if errors.Is(err, services.ErrProfileNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// ListProfileAnswers godoc
// @ID          listProfileAnswers
// @Summary     List a profile's answers
// @Description Returns the append-only answer log, oldest first, including answers from earlier passes.
// @Tags        Profiles
// @Produce     json
// @Param       X-Admin-Token  header  string  false "Admin token (when configured)"
// @Param       identity       path    string  true  "Chat identity"  example(123456789)
// @Success     200  {object}  handlers.AnswersResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profiles/{identity}/answers [get]
func (h *Handlers) ListProfileAnswers(c *gin.Context) {
	identity := c.Param("identity")
	answers, err := h.store.ListAnswers(c.Request.Context(), identity)
	if errors.Is(err, services.ErrProfileNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if answers == nil {
		answers = []domain.AnswerRecord{}
	}
	ok(c, http.StatusOK, AnswersResponse{Identity: identity, Answers: answers})
}
