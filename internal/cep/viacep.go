package cep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultViaCEPEndpoint is the public ViaCEP service
const DefaultViaCEPEndpoint = "https://viacep.com.br/ws"

// ViaCEPProvider resolves codes against https://viacep.com.br/ws/{cep}/json/
type ViaCEPProvider struct {
	endpoint   string
	httpClient *http.Client
}

// NewViaCEPProvider creates a ViaCEP provider
func NewViaCEPProvider(opts Options) Provider {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultViaCEPEndpoint
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ViaCEPProvider{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier
func (v *ViaCEPProvider) Name() string {
	return "viacep"
}

// IsEnabled returns true when an endpoint is configured
func (v *ViaCEPProvider) IsEnabled() bool {
	return v.endpoint != ""
}

// viaCEPResponse mirrors the fields we use from the ViaCEP payload
type viaCEPResponse struct {
	Erro       flag   `json:"erro"`
	UF         string `json:"uf"`
	Localidade string `json:"localidade"`
	Bairro     string `json:"bairro"`
	Logradouro string `json:"logradouro"`
}

// flag decodes ViaCEP's error marker, which is sent as true or "true"
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	*f = flag(bytes.EqualFold(data, []byte("true")))
	return nil
}

// Lookup resolves an 8-digit code
func (v *ViaCEPProvider) Lookup(ctx context.Context, digits string) (Address, error) {
	url := fmt.Sprintf("%s/%s/json/", v.endpoint, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Address{}, fmt.Errorf("%w: create request: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Address{}, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return Address{}, fmt.Errorf("%w: HTTP %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Address{}, fmt.Errorf("%w: HTTP %d: %s", ErrNetwork, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload viaCEPResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Address{}, fmt.Errorf("%w: unmarshal response: %v", ErrNetwork, err)
	}
	if payload.Erro {
		return Address{}, ErrNotFound
	}

	return Address{
		Estado:     payload.UF,
		Cidade:     payload.Localidade,
		Bairro:     payload.Bairro,
		Logradouro: payload.Logradouro,
	}, nil
}

func init() {
	Register("viacep", NewViaCEPProvider)
}
