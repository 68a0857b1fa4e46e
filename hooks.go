package memocache

// Bypass reasons.
const (
	ReasonNotConfigured = "not_configured"
	ReasonSkipCache     = "skip_cache"
	ReasonGenError      = "gen_error"
)

// Hooks are lightweight callbacks for cache events.
// Implementations MUST be cheap and non-blocking: every wrapped call
// reports at least one event. name is Config.Name of the wrapped operation.
type Hooks interface {
	// A live entry was served; the operation did not run.
	Hit(name, key string)
	// No live entry; the operation ran.
	Miss(name, key string)
	// The cache was not consulted at all.
	// reason ∈ {"not_configured", "skip_cache", "gen_error"}
	Bypass(name, reason string)
	// A stored payload failed to decode and was deleted.
	SelfHeal(name, key string, err error)
	// A fresh result could not be encoded; it was returned but not stored.
	EncodeError(name string, err error)
	// The backend returned an error (context errors only; the contract
	// swallows everything else). op ∈ {"get", "set", "delete"}
	StoreError(name, op string, err error)
	// The generation store failed for a namespace.
	GenError(namespace string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string, string)               {}
func (NopHooks) Miss(string, string)              {}
func (NopHooks) Bypass(string, string)            {}
func (NopHooks) SelfHeal(string, string, error)   {}
func (NopHooks) EncodeError(string, error)        {}
func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) GenError(string, error)           {}
