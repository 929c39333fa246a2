// Package producer generates the synthetic traffic of the two upstream
// applications: signed order bundles and contract product changes. The
// records look like Spanish energy-utility data so downstream consumers
// exercise realistic payloads.
package producer

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaswdr/faker"

	"github.com/gridlog/gridlog-go/internal/crm"
	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

// Product is a sellable tariff.
type Product struct {
	ID               string
	Name             string
	PricePerKWh      float64
	FixedFeeEurMonth float64
}

// Catalog is the fixed tariff catalog product changes draw from.
var Catalog = []Product{
	{ID: "tarifa-plana-24h", Name: "Tarifa Plana 24h", PricePerKWh: 0.1450, FixedFeeEurMonth: 9.90},
	{ID: "tarifa-horaria", Name: "Tarifa Horaria", PricePerKWh: 0.1180, FixedFeeEurMonth: 7.50},
	{ID: "tarifa-nocturna", Name: "Tarifa Nocturna", PricePerKWh: 0.1320, FixedFeeEurMonth: 8.25},
}

// OrderBundle is the payload of one signed order: the four entities the
// CRM registers together.
type OrderBundle struct {
	Client         crm.Client         `json:"client"`
	BillingAccount crm.BillingAccount `json:"billingAccount"`
	SupplyPoint    crm.SupplyPoint    `json:"supplyPoint"`
	Contract       crm.Contract       `json:"contract"`
}

// Payload marshals the bundle for publishing.
func (b OrderBundle) Payload() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order bundle: %w", err)
	}
	return string(data), nil
}

// Generator produces fake orders and product changes.
type Generator struct {
	faker faker.Faker
	now   func() time.Time
}

// New creates a generator with unseeded randomness.
func New() *Generator {
	return &Generator{faker: faker.New(), now: time.Now}
}

// NewSeeded creates a deterministic generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{
		faker: faker.NewWithSeed(rand.NewSource(seed)),
		now:   time.Now,
	}
}

// Order generates a complete order bundle for a brand-new client.
func (g *Generator) Order() OrderBundle {
	f := g.faker
	now := g.now().UTC().Format(time.RFC3339)

	clientID := "cli_" + eventlog.NewID()
	accountID := "ba_" + eventlog.NewID()
	supplyID := "sp_" + eventlog.NewID()
	contractID := "ct_" + eventlog.NewID()

	address := g.address()
	product := Catalog[f.IntBetween(0, len(Catalog)-1)]
	start := g.now().UTC()

	return OrderBundle{
		Client: crm.Client{
			ID:         clientID,
			FullName:   f.Person().Name(),
			DocumentID: g.dni(),
			Email:      f.Internet().Email(),
			Phone:      "+34" + g.digits(9),
			Address:    address,
			CreatedAt:  now,
		},
		BillingAccount: crm.BillingAccount{
			ID:             accountID,
			ClientID:       clientID,
			IBAN:           g.iban(),
			BillingAddress: address,
			PaymentMethod:  "direct_debit",
			Status:         "active",
			CreatedAt:      now,
		},
		SupplyPoint: crm.SupplyPoint{
			ID:                supplyID,
			ClientID:          clientID,
			CUPS:              g.cups(),
			Address:           address,
			SupplyType:        f.RandomStringElement([]string{"electricity", "gas"}),
			Distributor:       f.Company().Name(),
			ContractedPowerKw: roundTo(f.Float64(2, 3, 10), 2),
			CreatedAt:         now,
		},
		Contract: crm.Contract{
			ID:               contractID,
			ClientID:         clientID,
			BillingAccountID: accountID,
			SupplyPointID:    supplyID,
			Tariff:           product.Name,
			ProductID:        product.ID,
			Status:           "active",
			PricePerKWh:      roundTo(f.Float64(4, 0, 1)*0.08+0.12, 4),
			FixedFeeEurMonth: roundTo(f.Float64(2, 5, 15), 2),
			StartDate:        start.Format(time.RFC3339),
			EndDate:          start.AddDate(1, 0, 0).Format(time.RFC3339),
			RenewalType:      "automatic",
		},
	}
}

// ProductChange generates a product-change event for the given contract,
// switching it to a catalog product other than its current one.
func (g *Generator) ProductChange(contract crm.Contract) (string, error) {
	candidates := make([]Product, 0, len(Catalog))
	for _, p := range Catalog {
		if p.ID != contract.ProductID {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = Catalog
	}
	next := candidates[g.faker.IntBetween(0, len(candidates)-1)]

	jitter := func(base float64, decimals int) float64 {
		return roundTo(base*(1+float64(g.faker.IntBetween(-5, 5))/100), decimals)
	}

	change := map[string]any{
		"eventType":  crm.ProductChangeEventType,
		"version":    1,
		"source":     "clientapp",
		"contractId": contract.ID,
		"product": map[string]any{
			"prev": map[string]any{"id": contract.ProductID, "name": contract.Tariff},
			"next": map[string]any{"id": next.ID, "name": next.Name},
		},
		"pricing": map[string]any{
			"pricePerKWh":      map[string]any{"next": jitter(next.PricePerKWh, 4)},
			"fixedFeeEurMonth": map[string]any{"next": jitter(next.FixedFeeEurMonth, 2)},
		},
		"effectiveAt": g.now().UTC().Add(60 * time.Second).Format(time.RFC3339),
	}

	data, err := json.Marshal(change)
	if err != nil {
		return "", fmt.Errorf("failed to marshal product change: %w", err)
	}
	return string(data), nil
}

func (g *Generator) address() crm.Address {
	f := g.faker
	return crm.Address{
		Street:     fmt.Sprintf("Calle %s %d", f.Person().LastName(), f.IntBetween(1, 120)),
		City:       f.RandomStringElement([]string{"Madrid", "Barcelona", "Valencia", "Sevilla", "Bilbao", "Zaragoza"}),
		PostalCode: g.digits(5),
		Country:    "ES",
	}
}

// dni is the Spanish national id: eight digits plus a control letter.
func (g *Generator) dni() string {
	const letters = "TRWAGMYFPDXBNJZSQVHLCKE"
	number := g.faker.IntBetween(10000000, 99999999)
	return fmt.Sprintf("%08d%c", number, letters[number%23])
}

// cups is a Spanish supply point code: ES, sixteen digits, two letters.
func (g *Generator) cups() string {
	const letters = "ABCDEFGHJKLMNPQRSTVWXYZ"
	return "ES" + g.digits(16) +
		string(letters[g.faker.IntBetween(0, len(letters)-1)]) +
		string(letters[g.faker.IntBetween(0, len(letters)-1)])
}

// iban is a Spanish-format account number; check digits are not computed.
func (g *Generator) iban() string {
	return "ES" + g.digits(22)
}

func (g *Generator) digits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d", g.faker.IntBetween(0, 9))
	}
	return b.String()
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow10(decimals)
	return math.Round(v*factor) / factor
}
