package crm

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/gridlog/gridlog-go/pkg/cursor"
	"github.com/gridlog/gridlog-go/pkg/logclient"
)

// ProductChangeEventType is the kind discriminator of a tariff change.
const ProductChangeEventType = "contract.product_change"

// productChangeEvent is the payload shape emitted when a client switches
// product. Every "next" value is optional; a partial update is fine.
type productChangeEvent struct {
	EventType  string `json:"eventType"`
	ContractID string `json:"contractId"`
	Product    *struct {
		Next *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"next"`
	} `json:"product"`
	Pricing *struct {
		PricePerKWh *struct {
			Next flexNumber `json:"next"`
		} `json:"pricePerKWh"`
		FixedFeeEurMonth *struct {
			Next flexNumber `json:"next"`
		} `json:"fixedFeeEurMonth"`
	} `json:"pricing"`
	EffectiveAt string `json:"effectiveAt"`
}

// flexNumber accepts a JSON number or a numeric string; anything else
// leaves it unset, which simply means "no new value".
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	var asFloat float64
	if err := json.Unmarshal(data, &asFloat); err == nil {
		f.value, f.set = asFloat, true
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if trimmed := strings.TrimSpace(asString); trimmed != "" {
			if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
				f.value, f.set = parsed, true
			}
		}
	}
	// Unusable values are not an error, just not an update.
	return nil
}

// ProductChangeApplier applies tariff change events to existing contracts.
// It never creates entities: a change for an unknown contract is poison.
type ProductChangeApplier struct {
	Contracts *Repository[Contract]

	log zerolog.Logger
	now func() time.Time
}

// NewProductChangeApplier creates an applier over the given contracts.
func NewProductChangeApplier(contracts *Repository[Contract], log zerolog.Logger) *ProductChangeApplier {
	return &ProductChangeApplier{Contracts: contracts, log: log, now: time.Now}
}

// Apply consumes one product-change event. Applied means at least one
// contract field actually changed; a valid event supplying no new values
// is a no-op, distinct from a rejected poison message.
func (a *ProductChangeApplier) Apply(ctx context.Context, event logclient.Event) cursor.Outcome {
	var change productChangeEvent
	if err := json.Unmarshal([]byte(event.Payload), &change); err != nil {
		a.log.Error().Err(err).Str("id", event.ID).Msg("product change payload is not valid JSON, ignoring")
		return cursor.Poison
	}
	if change.EventType != ProductChangeEventType {
		a.log.Debug().Str("id", event.ID).Str("eventType", change.EventType).Msg("unrecognized event kind, ignoring")
		return cursor.NoChange
	}
	if change.ContractID == "" {
		a.log.Error().Str("id", event.ID).Msg("product change without contract id, ignoring")
		return cursor.Poison
	}

	contract, ok := a.Contracts.Get(change.ContractID)
	if !ok {
		// Expected with independent producers; not an anomaly.
		a.log.Debug().Str("contractId", change.ContractID).Msg("product change for unknown contract, ignoring")
		return cursor.Poison
	}

	updated := false

	if change.Product != nil && change.Product.Next != nil {
		next := change.Product.Next
		nextID := next.ID
		if nextID == "" {
			nextID = NormalizeProductID(next.Name)
		}
		if nextID != "" {
			contract.ProductID = nextID
			updated = true
		}
		if name := strings.TrimSpace(next.Name); name != "" {
			contract.Tariff = name
			updated = true
		}
	}

	if change.Pricing != nil {
		if p := change.Pricing.PricePerKWh; p != nil && p.Next.set {
			contract.PricePerKWh = roundTo(p.Next.value, 4)
			updated = true
		}
		if f := change.Pricing.FixedFeeEurMonth; f != nil && f.Next.set {
			contract.FixedFeeEurMonth = roundTo(f.Next.value, 2)
			updated = true
		}
	}

	if !updated {
		return cursor.NoChange
	}

	appliedAt := change.EffectiveAt
	if _, err := time.Parse(time.RFC3339, appliedAt); err != nil {
		appliedAt = a.now().UTC().Format(time.RFC3339Nano)
	}
	contract.LastProductChangeAt = appliedAt
	contract.UpdatedAt = a.now().UTC().Format(time.RFC3339Nano)

	a.Contracts.Update(contract)

	a.log.Debug().
		Str("contractId", contract.ID).
		Str("tariff", contract.Tariff).
		Float64("pricePerKWh", contract.PricePerKWh).
		Msg("contract product updated")

	return cursor.Applied
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow10(decimals)
	return math.Round(v*factor) / factor
}

// NormalizeProductID derives a stable product id from a display name:
// diacritics stripped, lower-cased, whitespace and underscores collapsed
// to single hyphens.
func NormalizeProductID(name string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(name) {
		switch {
		case unicode.IsMark(r):
			// Dropped combining marks strip the diacritics.
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r), r == '_', r == '-':
			b.WriteRune('-')
		}
	}

	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	return strings.Join(parts, "-")
}
