package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows the configured frontend. Outside production the usual local
// dev servers are allowed too.
func CORS(frontendURL string, production bool) gin.HandlerFunc {
	frontendURL = strings.TrimRight(frontendURL, "/")
	var origins []string
	if frontendURL != "" {
		origins = append(origins, frontendURL)
	}
	if !production {
		for _, o := range devOrigins {
			if o != frontendURL {
				origins = append(origins, o)
			}
		}
	}
	if len(origins) == 0 {
		origins = devOrigins
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
