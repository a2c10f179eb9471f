// Package correios queries the Correios SigepMaster SOAP service.
package correios

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"

	"golang.org/x/net/html/charset"

	"github.com/lc/cepr/internal/fetch"
	"github.com/lc/cepr/pkg/cep"
)

// DefaultEndpoint is the public AtendeCliente SOAP endpoint.
const DefaultEndpoint = "https://apps.correios.com.br/SigepMasterJPA/AtendeClienteService/AtendeCliente"

const (
	_soapEnvNS = "http://schemas.xmlsoap.org/soap/envelope/"
	_clientNS  = "http://cliente.bean.master.sigep.bsb.correios.com.br/"
)

var _ cep.Provider = (*Provider)(nil)

// Provider calls the consultaCEP operation.
type Provider struct {
	client   fetch.Doer
	endpoint string
}

// New returns a Provider posting SOAP requests through client to endpoint.
func New(client fetch.Doer, endpoint string) *Provider {
	return &Provider{
		client:   client,
		endpoint: endpoint,
	}
}

// Source implements cep.Provider.
func (p *Provider) Source() cep.Source { return cep.SourceCorreios }

// Lookup implements cep.Provider. The service reports malformed and
// unknown codes as SOAP faults with a 500 status.
func (p *Provider) Lookup(ctx context.Context, code string) (cep.Address, error) {
	payload, err := encodeRequest(cep.Normalize(code))
	if err != nil {
		return cep.Address{}, cep.NewUnexpectedError(cep.SourceCorreios, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return cep.Address{}, cep.NewUnexpectedError(cep.SourceCorreios, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	body, err := fetch.Do(p.client, req, cep.SourceCorreios)
	if err != nil {
		return cep.Address{}, err
	}

	var env responseEnvelope
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&env); err != nil {
		return cep.Address{}, cep.NewBodyParsingError(cep.SourceCorreios, err, body)
	}

	ret := env.Body.Response.Return
	if ret == nil {
		return cep.Address{}, cep.NewBodyParsingError(cep.SourceCorreios, cep.ErrNotFound, body)
	}
	return ret.address(), nil
}

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	SoapEnv string      `xml:"xmlns:soapenv,attr"`
	Cli     string      `xml:"xmlns:cli,attr"`
	Header  struct{}    `xml:"soapenv:Header"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	Consulta struct {
		CEP string `xml:"cep"`
	} `xml:"cli:consultaCEP"`
}

func encodeRequest(code string) ([]byte, error) {
	env := requestEnvelope{SoapEnv: _soapEnvNS, Cli: _clientNS}
	env.Body.Consulta.CEP = code

	out, err := xml.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

type responseEnvelope struct {
	Body struct {
		Response struct {
			Return *result `xml:"return"`
		} `xml:"consultaCEPResponse"`
	} `xml:"Body"`
}

type result struct {
	Bairro       string `xml:"bairro"`
	CEP          string `xml:"cep"`
	Cidade       string `xml:"cidade"`
	Complemento2 string `xml:"complemento2"`
	End          string `xml:"end"`
	UF           string `xml:"uf"`
}

func (r result) address() cep.Address {
	return cep.Address{
		CEP:          r.CEP,
		Street:       r.End,
		Details:      r.Complemento2,
		Neighborhood: r.Bairro,
		City:         r.Cidade,
		State:        r.UF,
	}
}
