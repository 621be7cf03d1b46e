// Event HTTP handlers.
//
// This file exposes the transport-facing endpoints of the funnel:
//   - POST /events                  (apply one button press or command)
//   - POST /reminders/{identity}    (deliver a due reminder)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/http/middleware"
	"github.com/tbourn/vibe-compass/internal/services"
)

// EventRequest is one inbound action from the chat platform.
type EventRequest struct {
	// Identity is the stable chat-platform user id. When the gateway also
	// sends X-Identity the two must agree; the header keys rate limiting and
	// replay detection before the body is read.
	Identity string `json:"identity" binding:"required,max=64" example:"123456789"`
	// DisplayName, LastName and Handle refresh the stored contact.
	DisplayName string `json:"display_name" binding:"max=255" example:"Anna"`
	LastName    string `json:"last_name" binding:"max=255" example:"Petrova"`
	Handle      string `json:"handle" binding:"max=255" example:"anna_p"`
	// Action is the raw button or command code.
	Action string `json:"action" binding:"required,max=64" example:"pain_messages"`
}

// ReplyDTO is one piece of content the transport should render.
type ReplyDTO struct {
	Selector string `json:"selector" example:"ask_time"`
	Keyboard string `json:"keyboard,omitempty" example:"time"`
	Text     string `json:"text,omitempty"`
	// DelayMS asks the transport to pause before rendering this reply.
	DelayMS int64 `json:"delay_ms" example:"1500"`
}

// EventResponse is the result of an accepted event.
type EventResponse struct {
	State     string                  `json:"state" example:"q_time"`
	Replies   []ReplyDTO              `json:"replies"`
	Duplicate bool                    `json:"duplicate,omitempty"`
	Lead      *domain.DispatchOutcome `json:"lead,omitempty"`
}

func toEventResponse(r *services.Response) EventResponse {
	out := EventResponse{
		State:     string(r.State),
		Replies:   make([]ReplyDTO, 0, len(r.Replies)),
		Duplicate: r.Duplicate,
		Lead:      r.Lead,
	}
	for _, rp := range r.Replies {
		out.Replies = append(out.Replies, ReplyDTO{
			Selector: rp.Selector,
			Keyboard: rp.Keyboard,
			Text:     rp.Text,
			DelayMS:  rp.Delay.Milliseconds(),
		})
	}
	return out
}

// PostEvent godoc
// @ID          postEvent
// @Summary     Apply a funnel event
// @Description Applies one button press or command for an identity and returns the replies to render. An Idempotency-Key (platform update id) makes redeliveries no-ops.
// @Tags        Funnel
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Platform delivery id"  example(update-981273)
// @Param       body             body    handlers.EventRequest  true  "Event payload"
//
// @Success     200  {object}  handlers.EventResponse
// @Param       X-Identity       header  string  false "Gateway identity, must match body identity"  example(123456789)
//
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or identity mismatch"
// @Failure     409  {object}  handlers.ErrorResponse  "Action not accepted in the current state"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /events [post]
func (h *Handlers) PostEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	identity := strings.TrimSpace(req.Identity)
	if hdr := strings.TrimSpace(c.GetHeader(middleware.HeaderIdentity)); hdr != "" && hdr != identity {
		fail(c, http.StatusBadRequest, ErrCodeIdentityMismatch, "X-Identity does not match body identity")
		return
	}
	middleware.SetIdentity(c, identity)
	key, _ := middleware.GetIdempotencyKey(c)

	resp, err := h.funnel.Handle(c.Request.Context(), services.Event{
		Identity: req.Identity,
		Contact: domain.Contact{
			DisplayName: strings.TrimSpace(req.DisplayName),
			LastName:    strings.TrimSpace(req.LastName),
			Handle:      strings.TrimPrefix(strings.TrimSpace(req.Handle), "@"),
		},
		Action: req.Action,
		Key:    key,
	})
	switch {
	case err == nil:
		ok(c, http.StatusOK, toEventResponse(resp))
	case errors.Is(err, services.ErrEmptyIdentity):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "identity required")
	case errors.Is(err, services.ErrInvalidTransition):
		failWithReply(c, http.StatusConflict, ErrCodeInvalidTransition, "please use the buttons", ReplyDTO{Selector: services.SelectorUseButtons})
	default:
		middleware.LoggerFrom(c).Error().Err(err).Str("action", req.Action).Msg("event failed")
		fail(c, http.StatusInternalServerError, ErrCodeTransitionFailed, "could not apply event")
	}
}

// DeliverReminder godoc
// @ID          deliverReminder
// @Summary     Deliver a due reminder
// @Description Moves a resting profile back to start and returns the reminder reply. 204 when the profile already re-entered the funnel.
// @Tags        Funnel
// @Produce     json
//
// @Param       identity  path  string  true  "Chat identity"  example(123456789)
//
// @Success     200  {object}  handlers.EventResponse
// @Success     204  {string}  string "No reminder due"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reminders/{identity} [post]
func (h *Handlers) DeliverReminder(c *gin.Context) {
	identity := c.Param("identity")
	middleware.SetIdentity(c, identity)

	resp, err := h.funnel.Reminder(c.Request.Context(), identity)
	switch {
	case errors.Is(err, services.ErrProfileNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("reminder failed")
		fail(c, http.StatusInternalServerError, ErrCodeTransitionFailed, "could not deliver reminder")
	case resp == nil:
		noContent(c)
	default:
		ok(c, http.StatusOK, toEventResponse(resp))
	}
}
