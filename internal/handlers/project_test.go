package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ct-preinstall/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanChangeProjectStatus(t *testing.T) {
	tests := []struct {
		from, to models.ProjectStatus
		want     bool
	}{
		{models.StatusDraft, models.StatusSiteSurvey, true},
		{models.StatusDraft, models.StatusEvaluation, false},
		{models.StatusSiteSurvey, models.StatusEvaluation, true},
		{models.StatusEvaluation, models.StatusApproved, true},
		{models.StatusApproved, models.StatusInstalled, true},
		{models.StatusApproved, models.StatusSiteSurvey, true},
		{models.StatusEvaluation, models.StatusEvaluation, false},
		{models.StatusDraft, models.StatusCancelled, true},
		{models.StatusApproved, models.StatusCancelled, true},
		{models.StatusInstalled, models.StatusCancelled, false},
		{models.StatusInstalled, models.StatusApproved, false},
		{models.StatusCancelled, models.StatusDraft, false},
		{models.StatusDraft, models.ProjectStatus("archived"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canChangeProjectStatus(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t, []models.ProjectStatus{models.StatusSiteSurvey, models.StatusCancelled}, nextStatuses(models.StatusDraft))
	assert.Empty(t, nextStatuses(models.StatusInstalled))
}

func formContext(t *testing.T, form url.Values) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func TestFormFloat(t *testing.T) {
	c := formContext(t, url.Values{
		"dot":   {"2.43"},
		"comma": {" 4,2 "},
		"blank": {"  "},
		"bad":   {"wide"},
		"inf":   {"Inf"},
		"zero":  {"0"},
	})

	v, err := formFloat(c, "dot")
	require.NoError(t, err)
	assert.Equal(t, 2.43, *v)

	v, err = formFloat(c, "comma")
	require.NoError(t, err)
	assert.Equal(t, 4.2, *v)

	v, err = formFloat(c, "blank")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = formFloat(c, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = formFloat(c, "bad")
	assert.EqualError(t, err, "bad must be a number")

	_, err = formFloat(c, "inf")
	assert.Error(t, err)

	_, err = formPositive(c, "zero")
	assert.EqualError(t, err, "zero must be positive")

	v, err = formPositive(c, "blank")
	require.NoError(t, err)
	assert.Nil(t, v)
}
