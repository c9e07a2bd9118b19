package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andreecahyadi/digital-bank-system/shared/config"
	"github.com/andreecahyadi/digital-bank-system/shared/middleware"
)

func main() {
	config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Resolved after config.Load so .env values are honored.
	identityServiceURL := getEnv("IDENTITY_SERVICE_URL", "http://localhost:8082")
	walletServiceURL := getEnv("WALLET_SERVICE_URL", "http://localhost:8083")
	transferServiceURL := getEnv("TRANSFER_SERVICE_URL", "http://localhost:8084")

	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "api-gateway"})
	})

	// Registration and login require no authentication
	router.POST("/api/users/register", proxyTo(identityServiceURL))
	router.POST("/api/users/login", proxyTo(identityServiceURL))

	// User routes
	router.GET("/api/users/search", middleware.AuthMiddleware(), proxyTo(identityServiceURL))
	router.GET("/api/users/active", middleware.AuthMiddleware(), proxyTo(identityServiceURL))
	router.GET("/api/users/recent", middleware.AuthMiddleware(), proxyTo(identityServiceURL))
	router.GET("/api/users/email/:email", middleware.AuthMiddleware(), proxyTo(identityServiceURL))
	router.GET("/api/users/:userId", middleware.AuthMiddleware(), proxyTo(identityServiceURL))

	// Wallet routes
	router.POST("/api/wallets", middleware.AuthMiddleware(), proxyTo(walletServiceURL))
	router.POST("/api/wallets/topup", middleware.AuthMiddleware(), proxyTo(walletServiceURL))
	router.GET("/api/wallets/user/:userId", middleware.AuthMiddleware(), proxyTo(walletServiceURL))
	router.GET("/api/wallets/wealthy", middleware.AuthMiddleware(), proxyTo(walletServiceURL))
	router.GET("/api/wallets/statistics", middleware.AuthMiddleware(), proxyTo(walletServiceURL))

	// Transfer routes
	router.POST("/api/transfers", middleware.AuthMiddleware(), proxyTo(transferServiceURL))
	router.GET("/api/transfers/history/:userId", middleware.AuthMiddleware(), proxyTo(transferServiceURL))
	router.GET("/api/transfers/summary/:userId", middleware.AuthMiddleware(), proxyTo(transferServiceURL))
	router.GET("/api/transfers/top-counterparties/:userId", middleware.AuthMiddleware(), proxyTo(transferServiceURL))
	router.GET("/api/transfers/daily-volume", middleware.AuthMiddleware(), proxyTo(transferServiceURL))
	router.GET("/api/transfers/large", middleware.AuthMiddleware(), proxyTo(transferServiceURL))

	port := getEnv("PORT", "8080")
	slog.Info("api gateway starting", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func proxyTo(serviceURL string) gin.HandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(c *gin.Context) {
		targetURL := serviceURL + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			targetURL += "?" + c.Request.URL.RawQuery
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, bytes.NewBuffer(bodyBytes))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create request"})
			return
		}

		for key, values := range c.Request.Header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		// Forward user context from JWT middleware if authenticated
		if userID, exists := c.Get("userId"); exists {
			req.Header.Set("X-User-ID", userID.(string))
		}
		if email, exists := c.Get("email"); exists {
			req.Header.Set("X-User-Email", email.(string))
		}

		resp, err := client.Do(req)
		if err != nil {
			slog.Error("proxy request failed", "target", targetURL, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"message": "Service unavailable"})
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to read response"})
			return
		}

		for key, values := range resp.Header {
			for _, value := range values {
				c.Header(key, value)
			}
		}

		c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		// Remove trailing slash if present
		return strings.TrimSuffix(value, "/")
	}
	return fallback
}
