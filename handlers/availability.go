package handlers

import (
	"net/http"

	"stylo/services/availability"
	"stylo/utils"

	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	Service availability.AvailabilityService
}

func NewAvailabilityHandler(svc availability.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{Service: svc}
}

func optionalQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}

// GetAvailability lists the free slots of a service on ?date=YYYY-MM-DD.
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	resp, err := h.Service.GetAvailableSlots(c.Request.Context(),
		c.Param("branchId"), c.Param("serviceId"), optionalQuery(c, "staff_id"), c.Query("date"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMonthAvailability summarizes the days of ?month=YYYY-MM.
func (h *AvailabilityHandler) GetMonthAvailability(c *gin.Context) {
	resp, err := h.Service.GetMonthAvailability(c.Request.Context(),
		c.Param("branchId"), c.Param("serviceId"), optionalQuery(c, "staff_id"), c.Query("month"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
