// Package cepla queries the CepLá service (http://cep.la).
//
// CepLá only answers with JSON when asked for it through the Accept
// header and its response headers do not follow RFC 2616 casing rules;
// net/http tolerates both, so no alternate transport is needed.
package cepla

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/lc/cepr/internal/fetch"
	"github.com/lc/cepr/pkg/cep"
)

// DefaultBaseURL is the public CepLá endpoint.
const DefaultBaseURL = "http://cep.la"

var _ cep.Provider = (*Provider)(nil)

// Provider looks codes up at /{cep}.
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
func (p *Provider) Source() cep.Source { return cep.SourceCepla }

// Lookup implements cep.Provider. Unknown or malformed codes come back as
// 200 with a body that is not an address object.
func (p *Provider) Lookup(ctx context.Context, code string) (cep.Address, error) {
	endpoint := p.base + "/" + url.PathEscape(cep.Normalize(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return cep.Address{}, cep.NewUnexpectedError(cep.SourceCepla, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := fetch.Do(p.client, req, cep.SourceCepla)
	if err != nil {
		return cep.Address{}, err
	}

	var r response
	if err := fetch.DecodeJSON(cep.SourceCepla, body, &r); err != nil {
		return cep.Address{}, err
	}
	if r.CEP == "" && r.Cidade == "" {
		return cep.Address{}, cep.NewBodyParsingError(cep.SourceCepla, cep.ErrNotFound, body)
	}
	return r.address(), nil
}

type response struct {
	CEP        string `json:"cep"`
	UF         string `json:"uf"`
	Cidade     string `json:"cidade"`
	Bairro     string `json:"bairro"`
	Logradouro string `json:"logradouro"`
	Aux        string `json:"aux"`
}

func (r response) address() cep.Address {
	return cep.Address{
		CEP:          r.CEP,
		Street:       r.Logradouro,
		Details:      r.Aux,
		Neighborhood: r.Bairro,
		City:         r.Cidade,
		State:        r.UF,
	}
}
