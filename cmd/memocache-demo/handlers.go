package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unkn0wn-root/memocache"
	"github.com/unkn0wn-root/memocache/codec"
	"github.com/unkn0wn-root/memocache/gincache"
)

type result struct {
	Result int `json:"result"`
}

type item struct {
	Name  string `json:"name" msgpack:"name"`
	Value int    `json:"value" msgpack:"value"`
}

type weather struct {
	City    string `json:"city"`
	Weather string `json:"weather"`
}

type demo struct {
	m       *memocache.Memoizer
	double  memocache.ContextFunc[result]
	triple  memocache.Func[result]
	custom  memocache.ContextFunc[map[string]int]
	quint   memocache.ContextFunc[result]
	toItem  memocache.ContextFunc[item]
	weather memocache.ContextFunc[weather]
}

func newDemo(m *memocache.Memoizer) *demo {
	d := &demo{m: m}
	d.double = memocache.WrapContext(m, func(_ context.Context, a memocache.Args) (result, error) {
		return result{Result: a.Keyword["x"].(int) * 2}, nil
	}, memocache.Config[result]{Name: "decorator.async", TTL: 10 * time.Second})

	d.triple = memocache.Wrap(m, func(a memocache.Args) (result, error) {
		return result{Result: a.Keyword["x"].(int) * 3}, nil
	}, memocache.Config[result]{Name: "decorator.sync", TTL: 10 * time.Second})

	d.custom = memocache.WrapContext(m, func(_ context.Context, a memocache.Args) (map[string]int, error) {
		return map[string]int{"custom_key": a.Keyword["x"].(int)}, nil
	}, memocache.Config[map[string]int]{
		Name:      "decorator.custom",
		Namespace: "custom",
		TTL:       15 * time.Second,
		KeyBuilder: func(a memocache.Args) (string, error) {
			return fmt.Sprintf("custom:%d", a.Keyword["x"]), nil
		},
	})

	d.quint = memocache.WrapContext(m, func(_ context.Context, a memocache.Args) (result, error) {
		return result{Result: a.Keyword["x"].(int) * 5}, nil
	}, memocache.Config[result]{Name: "decorator.skip", TTL: 10 * time.Second})

	d.toItem = memocache.WrapContext(m, func(_ context.Context, a memocache.Args) (item, error) {
		return item{Name: a.Keyword["name"].(string), Value: a.Keyword["value"].(int)}, nil
	}, memocache.Config[item]{Name: "decorator.struct", TTL: 10 * time.Second, Codec: codec.Msgpack[item]{}})

	d.weather = memocache.WrapContext(m, func(_ context.Context, a memocache.Args) (weather, error) {
		return weather{City: a.Keyword["city"].(string), Weather: "sunny"}, nil
	}, memocache.Config[weather]{Name: "weather"})
	return d
}

func (d *demo) routes(r *gin.Engine) {
	r.GET("/decorator/async", d.handleDouble)
	r.GET("/decorator/sync", d.handleTriple)
	r.GET("/decorator/custom", d.handleCustom)
	r.GET("/decorator/skip", d.handleSkip)
	r.GET("/decorator/struct", d.handleItem)
	r.GET("/profile/:user_id", d.handleProfile)
	r.GET("/weather", d.handleWeather)
	r.POST("/invalidate/:namespace", d.handleInvalidate)
}

func intQuery(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return n, true
}

// skipArg maps the skip_cache query parameter onto the reserved argument.
func skipArg(c *gin.Context, a memocache.Args) memocache.Args {
	if skip, _ := strconv.ParseBool(c.Query("skip_cache")); skip {
		return a.With(memocache.SkipCacheArg, true)
	}
	return a
}

func respond[V any](c *gin.Context, v V, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (d *demo) handleDouble(c *gin.Context) {
	x, ok := intQuery(c, "x")
	if !ok {
		return
	}
	v, err := d.double(c.Request.Context(), memocache.Call().With("x", x))
	respond(c, v, err)
}

func (d *demo) handleTriple(c *gin.Context) {
	x, ok := intQuery(c, "x")
	if !ok {
		return
	}
	v, err := d.triple(memocache.Call().With("x", x))
	respond(c, v, err)
}

func (d *demo) handleCustom(c *gin.Context) {
	x, ok := intQuery(c, "x")
	if !ok {
		return
	}
	v, err := d.custom(c.Request.Context(), memocache.Call().With("x", x))
	respond(c, v, err)
}

func (d *demo) handleSkip(c *gin.Context) {
	x, ok := intQuery(c, "x")
	if !ok {
		return
	}
	v, err := d.quint(c.Request.Context(), skipArg(c, memocache.Call().With("x", x)))
	respond(c, v, err)
}

func (d *demo) handleItem(c *gin.Context) {
	value, ok := intQuery(c, "value")
	if !ok {
		return
	}
	v, err := d.toItem(c.Request.Context(), memocache.Call().With("name", c.Query("name")).With("value", value))
	respond(c, v, err)
}

func (d *demo) handleWeather(c *gin.Context) {
	v, err := d.weather(c.Request.Context(), skipArg(c, memocache.Call().With("city", c.Query("city"))))
	respond(c, v, err)
}

// handleProfile uses the backend directly, next to the memoized endpoints.
func (d *demo) handleProfile(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be an integer"})
		return
	}
	profile := gin.H{"user_id": id, "bio": fmt.Sprintf("User %d bio", id)}

	b, ok := gincache.FromContext(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"profile": profile, "cached": false})
		return
	}
	ctx := c.Request.Context()
	key := "profile:" + strconv.Itoa(id)
	if raw, hit, _ := b.GetContext(ctx, key); hit {
		c.Data(http.StatusOK, "application/json", fmt.Appendf(nil, `{"profile":%s,"cached":true}`, raw))
		return
	}
	if raw, err := json.Marshal(profile); err == nil {
		_ = b.SetContext(ctx, key, raw, time.Minute)
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "cached": false})
}

func (d *demo) handleInvalidate(c *gin.Context) {
	ns := c.Param("namespace")
	err := d.m.InvalidateNamespace(c.Request.Context(), ns)
	switch {
	case errors.Is(err, memocache.ErrNoGenerations):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"invalidated": ns})
	}
}
