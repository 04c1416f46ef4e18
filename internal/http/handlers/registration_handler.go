// Package handlers – registration endpoints
//
// The registration surface is the HTTP mirror of the cohort sign-up form.
// Submissions are appended to the registration sheet under its header
// schema; the server assigns created_at regardless of any client-supplied
// value, and an Idempotency-Key header makes retried submissions safe.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docsanddecks/attendance-bot/internal/http/middleware"
	"github.com/docsanddecks/attendance-bot/internal/services"
)

// Handlers bundles the HTTP endpoint implementations and their service
// dependencies.
type Handlers struct {
	Registrations *services.RegistrationService
}

// New constructs the Handlers.
func New(reg *services.RegistrationService) *Handlers {
	return &Handlers{Registrations: reg}
}

// registrationRequest is the submission payload: a flat object of sheet
// column names to values. Unknown columns are dropped by the append; a
// client-supplied created_at is ignored.
type registrationRequest map[string]string

// registrationResponse reports where the submission landed. Created is false
// when an idempotent replay returned a previously appended row.
type registrationResponse struct {
	Row     int  `json:"row"`
	Created bool `json:"created"`
}

// existsResponse is the duplicate-check result.
type existsResponse struct {
	Exists bool `json:"exists"`
}

// SubmitRegistration handles POST /registrations.
func (h *Handlers) SubmitRegistration(c *gin.Context) {
	var req registrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "empty submission")
		return
	}

	form := make(map[string]string, len(req))
	for k, v := range req {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		form[k] = strings.TrimSpace(v)
	}

	key, _ := middleware.GetIdempotencyKey(c)
	row, created, err := h.Registrations.Submit(c.Request.Context(), form, key)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, "could not store registration")
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	ok(c, status, registrationResponse{Row: row, Created: created})
}

// RegistrationExists handles GET /registrations/exists. It reports whether a
// value already appears in a sheet column, which the sign-up form uses to
// reject duplicate emails before submitting. The sheet defaults to the
// registration worksheet.
func (h *Handlers) RegistrationExists(c *gin.Context) {
	sheet := strings.TrimSpace(c.Query("sheet"))
	column := strings.TrimSpace(c.Query("column"))
	value := strings.TrimSpace(c.Query("value"))
	if column == "" || value == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "column and value are required")
		return
	}

	exists, err := h.Registrations.Exists(c.Request.Context(), sheet, column, value)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "could not check registration")
		return
	}
	ok(c, http.StatusOK, existsResponse{Exists: exists})
}
