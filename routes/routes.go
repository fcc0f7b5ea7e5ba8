package routes

import (
	"strings"
	"time"

	"stylo/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health)
}

// RegisterAvailabilityRoutes registers the public availability endpoints.
func RegisterAvailabilityRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	services := api.Group("/services/:branchId/:serviceId")
	{
		services.GET("/availability", hb.GetAvailability)
		services.GET("/availability/month", hb.GetMonthAvailability)
	}
}

// RegisterBookingRoutes sets up the endpoints of the public booking flow.
func RegisterBookingRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	bookingGroup := api.Group("/appointments/booking")
	{
		bookingGroup.POST("/start", hb.StartBooking)
		bookingGroup.POST("/lookup-client", hb.LookupClient)
		bookingGroup.POST("/lookup-reniec", hb.LookupReniec)
		bookingGroup.POST("/send-otp", hb.SendOTP)
		bookingGroup.POST("/resend-otp", hb.ResendOTP)
		bookingGroup.POST("/verify-otp", hb.VerifyOTP)
	}
}

func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if origins == "" || origins == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	cfg.AllowCredentials = true
	return cfg
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
// origins is the comma separated CORS allow list, "*" for any.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, origins string) {
	r.Use(cors.New(corsConfig(origins)))

	RegisterHealthRoute(r, hb)
	api := r.Group("/api/v1")
	RegisterAvailabilityRoutes(api, hb)
	RegisterBookingRoutes(api, hb)
}
