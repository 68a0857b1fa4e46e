// Package gincache exposes a Memoizer's backend to gin handlers.
package gincache

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unkn0wn-root/memocache"
	"github.com/unkn0wn-root/memocache/backend"
)

const backendKey = "memocache.backend"

// DirectTTL is the expiry of values written through /di/set.
const DirectTTL = 30 * time.Second

// Inject makes the registered backend available to FromContext. Requests
// pass through untouched when nothing is registered.
func Inject(m *memocache.Memoizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if b, ok := m.Backend(); ok {
			c.Set(backendKey, b)
		}
		c.Next()
	}
}

// FromContext returns the backend set by Inject.
func FromContext(c *gin.Context) (backend.Backend, bool) {
	v, ok := c.Get(backendKey)
	if !ok {
		return nil, false
	}
	b, ok := v.(backend.Backend)
	return b, ok
}

// Routes registers direct backend access endpoints:
//
//	GET    /di/set?key=&value=
//	GET    /di/get?key=
//	GET    /di/has?key=
//	DELETE /di/delete?key=
//	POST   /di/clear
func Routes(r gin.IRoutes, m *memocache.Memoizer) {
	r.Use(Inject(m))
	r.GET("/di/set", withBackend(diSet))
	r.GET("/di/get", withBackend(diGet))
	r.GET("/di/has", withBackend(diHas))
	r.DELETE("/di/delete", withBackend(diDelete))
	r.POST("/di/clear", withBackend(diClear))
}

func withBackend(h func(*gin.Context, backend.Backend)) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := FromContext(c)
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache not configured"})
			return
		}
		h(c, b)
	}
}

func requireKey(c *gin.Context) (string, bool) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return "", false
	}
	return key, true
}

func diSet(c *gin.Context, b backend.Backend) {
	key, ok := requireKey(c)
	if !ok {
		return
	}
	if err := b.SetContext(c.Request.Context(), key, []byte(c.Query("value")), DirectTTL); err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"set": true})
}

func diGet(c *gin.Context, b backend.Backend) {
	key, ok := requireKey(c)
	if !ok {
		return
	}
	v, found, err := b.GetContext(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"value": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": string(v)})
}

func diHas(c *gin.Context, b backend.Backend) {
	key, ok := requireKey(c)
	if !ok {
		return
	}
	exists, err := b.HasContext(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func diDelete(c *gin.Context, b backend.Backend) {
	key, ok := requireKey(c)
	if !ok {
		return
	}
	if err := b.DeleteContext(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func diClear(c *gin.Context, b backend.Backend) {
	if err := b.ClearContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
