package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"ct-preinstall/internal/conformity"
	"ct-preinstall/internal/middleware"
	"ct-preinstall/internal/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// render wraps c.HTML and passes the current actor and pending flash
// messages to every template.
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Actor"] = middleware.Actor(c)

	sess := sessions.Default(c)
	if flashes := sess.Flashes(); len(flashes) > 0 {
		data["Flashes"] = flashes
		_ = sess.Save()
	}

	c.HTML(status, tmpl, data)
}

// redirectWithFlash stores a one-shot message for the next rendered page.
func redirectWithFlash(c *gin.Context, location, msg string) {
	sess := sessions.Default(c)
	sess.AddFlash(msg)
	_ = sess.Save()
	c.Redirect(http.StatusFound, location)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.String(http.StatusBadRequest, "invalid %s", name)
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func errorStatus(err error) int {
	var verr *conformity.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSiteLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// renderServiceError answers a plain-text error for non-form pages.
func renderServiceError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.String(status, "internal error")
		return
	}
	c.String(status, err.Error())
}
