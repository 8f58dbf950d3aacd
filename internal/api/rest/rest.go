package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes.
// authMiddleware guards the routes that act on behalf of a wallet.
func SetupRoutes(router *gin.Engine, handler Handler, authMiddleware gin.HandlerFunc) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Listing endpoints (public read access, wallet auth for mutations)
		v1.GET("/listings", handler.ListListings)
		v1.GET("/listings/:id", handler.GetListing)
		v1.POST("/listings", authMiddleware, handler.CreateListing)
		v1.PUT("/listings/:id", authMiddleware, handler.UpdateListing)
		v1.DELETE("/listings/:id", authMiddleware, handler.CancelListing)
		v1.POST("/listings/:id/buy", authMiddleware, handler.BuyListing)
		v1.POST("/listings/:id/bid", authMiddleware, handler.PlaceBid)

		// Settlement is open: anyone may close an ended auction
		v1.POST("/listings/:id/settle", handler.SettleListing)

		// Asset endpoints
		v1.GET("/assets/:chain/:contract/:token", handler.GetAsset)
		v1.GET("/assets/:chain/:contract/:token/history", handler.GetAssetHistory)
		v1.GET("/assets/:chain/:contract/:token/verify", authMiddleware, handler.VerifyAssetOwnership)

		// Transaction history
		v1.GET("/transactions", handler.ListTransactions)
		v1.GET("/transactions/:hash", handler.GetTransaction)

		// Wallet authentication
		v1.GET("/auth/nonce/:address", handler.GetNonce)
		v1.POST("/auth/verify", handler.VerifySignature)
	}
}
