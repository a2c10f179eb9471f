// Package viacep queries the ViaCEP JSON API (https://viacep.com.br).
package viacep

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/lc/cepr/internal/fetch"
	"github.com/lc/cepr/pkg/cep"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br"

var _ cep.Provider = (*Provider)(nil)

// Provider looks codes up at /ws/{cep}/json/.
type Provider struct {
	client fetch.Doer
	base   string
}

// New returns a Provider sending requests through client to baseURL.
func New(client fetch.Doer, baseURL string) *Provider {
	return &Provider{
		client: client,
		base:   strings.TrimRight(baseURL, "/"),
	}
}

// Source implements cep.Provider.
func (p *Provider) Source() cep.Source { return cep.SourceViaCEP }

// Lookup implements cep.Provider. ViaCEP answers 400 to malformed codes
// and 200 with {"erro": true} to well-formed but unknown ones.
func (p *Provider) Lookup(ctx context.Context, code string) (cep.Address, error) {
	endpoint := p.base + "/ws/" + url.PathEscape(cep.Normalize(code)) + "/json/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return cep.Address{}, cep.NewUnexpectedError(cep.SourceViaCEP, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := fetch.Do(p.client, req, cep.SourceViaCEP)
	if err != nil {
		return cep.Address{}, err
	}

	var r response
	if err := fetch.DecodeJSON(cep.SourceViaCEP, body, &r); err != nil {
		return cep.Address{}, err
	}
	if r.Erro {
		return cep.Address{}, cep.NewBodyParsingError(cep.SourceViaCEP, cep.ErrNotFound, body)
	}
	return r.address(), nil
}

type response struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        flag   `json:"erro"`
}

func (r response) address() cep.Address {
	return cep.Address{
		CEP:          r.CEP,
		Street:       r.Logradouro,
		Details:      r.Complemento,
		Neighborhood: r.Bairro,
		City:         r.Localidade,
		State:        r.UF,
	}
}

// flag accepts both true and "true"; ViaCEP has served either.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	*f = flag(bytes.EqualFold(b, []byte("true")))
	return nil
}
