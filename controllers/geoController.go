package controllers

import (
	"net/http"
	"strconv"

	"urbanconnect-be/services"

	"github.com/gin-gonic/gin"
)

type GeoController struct {
	geo *services.GeoValidator
}

func NewGeoController(geo *services.GeoValidator) *GeoController {
	return &GeoController{geo: geo}
}

// ReverseGeocode turns device coordinates into a display address. When the
// provider is down the raw coordinates come back with verified=false.
func (gc *GeoController) ReverseGeocode(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || !services.ValidCoordinates(lat, lng) {
		respondError(c, services.ErrInvalidLocation)
		return
	}
	c.JSON(http.StatusOK, gc.geo.Reverse(c.Request.Context(), lat, lng))
}
