// Package retailer classifies product URLs into a closed set of known
// storefronts and decides which transport an extraction should use.
package retailer

import (
	"strings"
	"time"
)

// Kind identifies a storefront with a dedicated parsing strategy.
type Kind int

const (
	Generic Kind = iota
	Walmart
	BestBuy
	Newegg
	AliExpress
)

func (k Kind) String() string {
	switch k {
	case Walmart:
		return "walmart"
	case BestBuy:
		return "bestbuy"
	case Newegg:
		return "newegg"
	case AliExpress:
		return "aliexpress"
	default:
		return "generic"
	}
}

// Transport selects how the document is obtained.
type Transport int

const (
	StaticFetch Transport = iota
	ScriptedBrowser
)

// Plan is the routing decision for one extraction call.
type Plan struct {
	Kind      Kind
	Transport Transport
}

// Classify resolves the retailer from substring matches on the URL. Unknown
// hosts fall through to Generic.
func Classify(rawURL string) Kind {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "aliexpress"):
		return AliExpress
	case strings.Contains(u, "walmart"):
		return Walmart
	case strings.Contains(u, "bestbuy"):
		return BestBuy
	case strings.Contains(u, "newegg"):
		return Newegg
	default:
		return Generic
	}
}

// Route decides the transport for a URL. AliExpress renders its prices
// client-side and needs the scripted browser; everyone else gets the
// static fetch path.
func Route(rawURL string) Plan {
	kind := Classify(rawURL)
	if kind == AliExpress {
		return Plan{Kind: kind, Transport: ScriptedBrowser}
	}
	return Plan{Kind: kind, Transport: StaticFetch}
}

// Profile carries the per-retailer tuning knobs: the plausibility window a
// regex-scanned number must fall into, and how long to let client-side
// widgets settle after navigation on the scripted path.
type Profile struct {
	ScanFloor   float64
	ScanCeiling float64
	SettleDelay time.Duration
}

// Profile returns the tuning profile for the retailer. The floors differ
// per storefront to cut false positives from incidental numbers.
func (k Kind) Profile() Profile {
	switch k {
	case BestBuy:
		return Profile{ScanFloor: 9.99, ScanCeiling: 50000, SettleDelay: 4 * time.Second}
	case AliExpress:
		return Profile{ScanFloor: 1, ScanCeiling: 10000, SettleDelay: 6 * time.Second}
	default:
		return Profile{ScanFloor: 0.99, ScanCeiling: 50000, SettleDelay: 4 * time.Second}
	}
}
