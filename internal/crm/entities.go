package crm

// Domain entities managed by the CRM. They are created and updated only by
// the event appliers and are never removed. Timestamps stay as the opaque
// ISO strings producers emitted; the CRM treats them as display data.

// Address is a postal address shared by several entity kinds.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Client is an energy customer.
type Client struct {
	ID         string  `json:"id"`
	FullName   string  `json:"fullName"`
	DocumentID string  `json:"documentId"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Address    Address `json:"address"`
	CreatedAt  string  `json:"createdAt"`
}

// BillingAccount is the payment account backing a client's contracts.
type BillingAccount struct {
	ID             string  `json:"id"`
	ClientID       string  `json:"clientId"`
	IBAN           string  `json:"iban"`
	BillingAddress Address `json:"billingAddress"`
	PaymentMethod  string  `json:"paymentMethod"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
}

// SupplyPoint is a metered delivery point (electricity or gas).
type SupplyPoint struct {
	ID                string  `json:"id"`
	ClientID          string  `json:"clientId"`
	CUPS              string  `json:"cups"`
	Address           Address `json:"address"`
	SupplyType        string  `json:"supplyType"`
	Distributor       string  `json:"distributor"`
	ContractedPowerKw float64 `json:"contractedPowerKw"`
	CreatedAt         string  `json:"createdAt"`
}

// Contract binds a client, billing account and supply point to a tariff.
// Product-change events may later adjust the product, price and fee fields.
type Contract struct {
	ID                  string  `json:"id"`
	ClientID            string  `json:"clientId"`
	BillingAccountID    string  `json:"billingAccountId"`
	SupplyPointID       string  `json:"supplyPointId"`
	Tariff              string  `json:"tariff"`
	ProductID           string  `json:"productId,omitempty"`
	Status              string  `json:"status"`
	PricePerKWh         float64 `json:"pricePerKWh"`
	FixedFeeEurMonth    float64 `json:"fixedFeeEurMonth"`
	StartDate           string  `json:"startDate"`
	EndDate             string  `json:"endDate"`
	RenewalType         string  `json:"renewalType"`
	LastProductChangeAt string  `json:"lastProductChangeAt,omitempty"`
	UpdatedAt           string  `json:"updatedAt,omitempty"`
}

func (c Client) EntityID() string         { return c.ID }
func (b BillingAccount) EntityID() string { return b.ID }
func (s SupplyPoint) EntityID() string    { return s.ID }
func (c Contract) EntityID() string       { return c.ID }
