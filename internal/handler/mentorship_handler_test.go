package handler

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-collab-api/internal/models"
)

func TestBookSessionInvalidBody(t *testing.T) {
	handler := NewMentorshipHandler(nil, nil)
	c, w := newTestContext(t)
	req, _ := http.NewRequest(http.MethodPost, "/mentors/m1/sessions", bytes.NewReader([]byte(`{"title":"chat"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	setClaims(c, models.RoleStudent)

	handler.Book(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMentorsUnauthenticated(t *testing.T) {
	handler := NewMentorshipHandler(nil, nil)
	c, w := newTestContext(t)
	req, _ := http.NewRequest(http.MethodGet, "/mentors", nil)
	c.Request = req

	handler.ListMentors(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryIntFallback(t *testing.T) {
	c, _ := newTestContext(t)
	req, _ := http.NewRequest(http.MethodGet, "/mentors?page=abc&page_size=50", nil)
	c.Request = req

	assert.Equal(t, 1, queryInt(c, "page", 1))
	assert.Equal(t, 50, queryInt(c, "page_size", 20))
	assert.Equal(t, 20, queryInt(c, "missing", 20))
}
