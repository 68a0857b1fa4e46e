// Package prom counts memoizer events with Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/memocache"
)

// Hooks holds the memoizer counters. Labels use Config.Name, so keep
// operation names low-cardinality.
type Hooks struct {
	Lookups    *prometheus.CounterVec // op, result=hit|miss
	Bypasses   *prometheus.CounterVec // op, reason
	SelfHeals  *prometheus.CounterVec // op
	EncodeErrs *prometheus.CounterVec // op
	StoreErrs  *prometheus.CounterVec // op, backend_op
	GenErrs    *prometheus.CounterVec // namespace
}

var _ memocache.Hooks = (*Hooks)(nil)

// New registers the counters on reg (prometheus.DefaultRegisterer when nil).
func New(namespace string, reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_lookups_total",
			Help:      "Cache lookups by wrapped operation and result",
		}, []string{"op", "result"}),
		Bypasses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_bypass_total",
			Help:      "Calls that skipped the cache",
		}, []string{"op", "reason"}),
		SelfHeals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_self_heal_total",
			Help:      "Undecodable entries deleted on read",
		}, []string{"op"}),
		EncodeErrs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_encode_errors_total",
			Help:      "Results returned but not stored because encoding failed",
		}, []string{"op"}),
		StoreErrs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_store_errors_total",
			Help:      "Backend calls that returned an error",
		}, []string{"op", "backend_op"}),
		GenErrs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_gen_errors_total",
			Help:      "Generation store failures",
		}, []string{"namespace"}),
	}
}

func (h *Hooks) Hit(name, _ string)               { h.Lookups.WithLabelValues(name, "hit").Inc() }
func (h *Hooks) Miss(name, _ string)              { h.Lookups.WithLabelValues(name, "miss").Inc() }
func (h *Hooks) Bypass(name, reason string)       { h.Bypasses.WithLabelValues(name, reason).Inc() }
func (h *Hooks) SelfHeal(name, _ string, _ error) { h.SelfHeals.WithLabelValues(name).Inc() }
func (h *Hooks) EncodeError(name string, _ error) { h.EncodeErrs.WithLabelValues(name).Inc() }
func (h *Hooks) StoreError(name, op string, _ error) {
	h.StoreErrs.WithLabelValues(name, op).Inc()
}
func (h *Hooks) GenError(ns string, _ error) { h.GenErrs.WithLabelValues(ns).Inc() }
