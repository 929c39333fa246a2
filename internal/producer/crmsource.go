package producer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/gridlog/gridlog-go/internal/crm"
)

// ContractSource pulls contracts from the CRM read API so product changes
// can target contracts that actually exist.
type ContractSource struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewContractSource creates a source over the CRM read API.
func NewContractSource(baseURL string) (*ContractSource, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CRM base URL: %w", err)
	}
	return &ContractSource{
		baseURL:    parsed,
		httpClient: &http.Client{},
	}, nil
}

// Contracts fetches every registered contract, walking all pages.
func (s *ContractSource) Contracts(ctx context.Context) ([]crm.Contract, error) {
	var all []crm.Contract
	for page := 1; ; page++ {
		batch, totalPages, err := s.page(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if page >= totalPages {
			return all, nil
		}
	}
}

func (s *ContractSource) page(ctx context.Context, page int) ([]crm.Contract, int, error) {
	endpoint := *s.baseURL
	endpoint.Path = "/contracts"
	endpoint.RawQuery = url.Values{"page": {fmt.Sprint(page)}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reach CRM: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("CRM returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CRM response: %w", err)
	}

	var collection crm.CollectionResponse[crm.Contract]
	if err := json.Unmarshal(body, &collection); err != nil {
		return nil, 0, fmt.Errorf("failed to decode CRM response: %w", err)
	}
	return collection.Data, collection.Pagination.TotalPages, nil
}
