package api

import (
	"net/http"
	"strconv"

	"give4need/internal/common/auth"
	"give4need/internal/common/errors"
	"give4need/internal/geolocation"
	"give4need/internal/listing"
	"give4need/internal/nearby"

	"github.com/gin-gonic/gin"
)

// handleRecommendations builds the nearby view from the position the browser reported.
// GET /api/v1/recommendations?lat=&lng=&geoError=
func (s *Server) handleRecommendations(c *gin.Context) {
	reported := geolocation.Reported{
		Lat: queryFloat(c, "lat"),
		Lng: queryFloat(c, "lng"),
	}
	if code, err := strconv.Atoi(c.Query("geoError")); err == nil {
		reported.Code = code
	}

	view := s.nearby.Build(c.Request.Context(), nearby.Request{
		Auth:     auth.NewHub(currentUser(c)),
		Position: reported,
	})
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleLatest(c *gin.Context) {
	items, err := s.listings.Latest(c.Request.Context(), currentUserID(c), c.Query("q"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleSearch(c *gin.Context) {
	items, err := s.listings.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleMine(c *gin.Context) {
	items, err := s.listings.Mine(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleCategory(c *gin.Context) {
	items, err := s.listings.Category(c.Request.Context(), c.Param("category"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleDetails(c *gin.Context) {
	details, err := s.listings.Details(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) handleCreate(c *gin.Context) {
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, errors.NewParseError(err))
		return
	}
	res, err := s.listings.Create(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, errors.NewParseError(err))
		return
	}
	res, err := s.listings.Update(c.Request.Context(), currentUserID(c), c.Param("id"), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleToggle(c *gin.Context) {
	res, err := s.listings.ToggleAvailability(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDelete(c *gin.Context) {
	res, err := s.listings.Delete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeError maps a StandardError code to an HTTP status.
func (s *Server) writeError(c *gin.Context, err error) {
	stdErr := errors.Normalize(err)

	status := http.StatusInternalServerError
	switch stdErr.Code {
	case errors.ErrCodeItemNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeListingForbidden:
		status = http.StatusForbidden
	case errors.ErrCodeUnauthenticated:
		status = http.StatusUnauthorized
	case errors.ErrCodeListingValidationFailed:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeParseError:
		status = http.StatusBadRequest
	case errors.ErrCodeSearchQueryFailed, errors.ErrCodeExternalService, errors.ErrCodeTimeout:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"code":  stdErr.Code,
			"error": err,
		})
	}

	body := gin.H{"error": stdErr.Message, "code": stdErr.Code}
	if fields, ok := stdErr.Metadata["fields"]; ok {
		body["fields"] = fields
	}
	c.JSON(status, body)
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}
