package crm

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gridlog/gridlog-go/pkg/cursor"
	"github.com/gridlog/gridlog-go/pkg/logclient"
)

// orderBundle is the payload shape of an order-intake event: the four
// entities created together by one signed order.
type orderBundle struct {
	Client         *Client         `json:"client"`
	BillingAccount *BillingAccount `json:"billingAccount"`
	SupplyPoint    *SupplyPoint    `json:"supplyPoint"`
	Contract       *Contract       `json:"contract"`
}

func (b *orderBundle) valid() bool {
	return b.Client != nil && b.Client.ID != "" &&
		b.BillingAccount != nil && b.BillingAccount.ID != "" &&
		b.SupplyPoint != nil && b.SupplyPoint.ID != "" &&
		b.Contract != nil && b.Contract.ID != ""
}

// BundleRegistrar applies order-intake events: it registers the client and
// inserts the billing account, supply point and contract if absent.
// Application is idempotent; nothing is ever overwritten.
type BundleRegistrar struct {
	Clients         *Repository[Client]
	BillingAccounts *Repository[BillingAccount]
	SupplyPoints    *Repository[SupplyPoint]
	Contracts       *Repository[Contract]

	// MaxClients is the capacity ceiling on distinct clients; 0 means
	// unlimited. At the ceiling a new-client event stops consumption.
	MaxClients int

	log zerolog.Logger
}

// NewBundleRegistrar creates a registrar with empty repositories.
func NewBundleRegistrar(maxClients int, log zerolog.Logger) *BundleRegistrar {
	return &BundleRegistrar{
		Clients:         NewRepository[Client](),
		BillingAccounts: NewRepository[BillingAccount](),
		SupplyPoints:    NewRepository[SupplyPoint](),
		Contracts:       NewRepository[Contract](),
		MaxClients:      maxClients,
		log:             log,
	}
}

// AtCapacity reports whether the client ceiling has been reached.
func (r *BundleRegistrar) AtCapacity() bool {
	return r.MaxClients > 0 && r.Clients.Len() >= r.MaxClients
}

// Apply consumes one order-intake event.
func (r *BundleRegistrar) Apply(ctx context.Context, event logclient.Event) cursor.Outcome {
	var bundle orderBundle
	if err := json.Unmarshal([]byte(event.Payload), &bundle); err != nil {
		r.log.Error().Err(err).Str("id", event.ID).Msg("order event payload is not valid JSON, ignoring")
		return cursor.Poison
	}
	if !bundle.valid() {
		r.log.Error().Str("id", event.ID).Msg("order event with invalid structure, ignoring")
		return cursor.Poison
	}

	_, existing := r.Clients.Get(bundle.Client.ID)
	if !existing && r.AtCapacity() {
		r.log.Warn().Str("clientId", bundle.Client.ID).Msg("client capacity reached, rejecting new order")
		return cursor.Exhausted
	}

	newClient := false
	if !existing {
		newClient = r.Clients.InsertIfAbsent(*bundle.Client)
	}
	r.BillingAccounts.InsertIfAbsent(*bundle.BillingAccount)
	r.SupplyPoints.InsertIfAbsent(*bundle.SupplyPoint)
	r.Contracts.InsertIfAbsent(*bundle.Contract)

	if newClient {
		r.log.Debug().
			Str("clientId", bundle.Client.ID).
			Int("clients", r.Clients.Len()).
			Msg("client registered")
		return cursor.Applied
	}
	return cursor.NoChange
}
