package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentrover/rentrover/pkg/auth"
)

// RouterOptions wires the HTTP surface
type RouterOptions struct {
	Bids      *BidHandler
	Signer    *auth.Signer
	WebSocket gin.HandlerFunc
	// Middleware runs before routing, e.g. CORS
	Middleware []gin.HandlerFunc
}

// NewRouter builds the gin engine
func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(opts.Middleware...)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	authn := auth.Middleware(opts.Signer)
	if opts.WebSocket != nil {
		r.GET("/ws", authn, opts.WebSocket)
	}

	v1 := r.Group("/api/v1", authn)
	{
		v1.POST("/bids", auth.RequireRole(auth.RoleRenter), opts.Bids.SubmitBid)
		v1.GET("/bids", opts.Bids.ListBids)
		v1.POST("/bids/:id/accept", auth.RequireRole(auth.RoleOwner), opts.Bids.AcceptBid)
		v1.PUT("/bids/:id/reject", auth.RequireRole(auth.RoleOwner), opts.Bids.RejectBid)
		v1.GET("/vehicles/:id/best-bids", auth.RequireRole(auth.RoleOwner), opts.Bids.BestBids)
		v1.GET("/vehicles/:id/booked-dates", opts.Bids.BookedDates)
		v1.GET("/vehicles/:id/bookings", opts.Bids.VehicleBookings)
		v1.GET("/bookings", opts.Bids.ListBookings)
	}

	return r
}
