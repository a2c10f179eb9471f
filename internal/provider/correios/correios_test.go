package correios

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/suite"

	"github.com/lc/cepr/internal/providertest"
	"github.com/lc/cepr/pkg/cep"
)

type CorreiosTestSuite struct {
	suite.Suite
	srv      *providertest.Server
	provider *Provider
}

func (s *CorreiosTestSuite) SetupTest() {
	s.srv = providertest.New(s.T())
	s.provider = New(http.DefaultClient, s.srv.CorreiosURL())
}

func (s *CorreiosTestSuite) TestLookupKnownCodes() {
	want := providertest.Known["70150903"]

	for _, code := range []string{"70150903", "70150-903"} {
		s.Run(code, func() {
			addr, err := s.provider.Lookup(context.Background(), code)
			s.Require().NoError(err)

			opts := cmpopts.IgnoreFields(cep.Address{}, "Details")
			if diff := cmp.Diff(want, addr, opts); diff != "" {
				s.Failf("address mismatch", "(-want +got):\n%s", diff)
			}
		})
	}
}

func (s *CorreiosTestSuite) TestMalformedCodeIsServerError() {
	_, err := s.provider.Lookup(context.Background(), "123")

	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.SourceCorreios, e.Source)
	s.Equal(cep.KindServer, e.Kind)
	s.Equal(http.StatusInternalServerError, e.Code)
}

func (s *CorreiosTestSuite) TestEmptyReturnIsNotFound() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`+
			`<ns2:consultaCEPResponse xmlns:ns2="http://cliente.bean.master.sigep.bsb.correios.com.br/"/>`+
			`</soap:Body></soap:Envelope>`)
	}))
	defer srv.Close()

	_, err := New(http.DefaultClient, srv.URL).Lookup(context.Background(), "70150903")
	s.True(errors.Is(err, cep.ErrNotFound))
}

func (s *CorreiosTestSuite) TestGarbageBodyIsBodyParsingError() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html><body>maintenance")
	}))
	defer srv.Close()

	_, err := New(http.DefaultClient, srv.URL).Lookup(context.Background(), "70150903")

	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.KindBodyParsing, e.Kind)
	s.Equal("<html><body>maintenance", e.Body)
}

func (s *CorreiosTestSuite) TestLatin1Envelope() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>"+
			"<Envelope><Body><consultaCEPResponse><return>"+
			"<cidade>Bras\xedlia</cidade><uf>DF</uf><cep>70150903</cep>"+
			"</return></consultaCEPResponse></Body></Envelope>")
	}))
	defer srv.Close()

	addr, err := New(http.DefaultClient, srv.URL).Lookup(context.Background(), "70150903")
	s.Require().NoError(err)
	s.Equal("Brasília", addr.City)
}

func (s *CorreiosTestSuite) TestRequestEnvelope() {
	payload, err := encodeRequest("70150903")
	s.Require().NoError(err)

	var env struct {
		Body struct {
			Consulta struct {
				CEP string `xml:"cep"`
			} `xml:"consultaCEP"`
		} `xml:"Body"`
	}
	s.Require().NoError(xml.Unmarshal(payload, &env))
	s.Equal("70150903", env.Body.Consulta.CEP)
	s.Contains(string(payload), _clientNS)

	payload, err = encodeRequest("<&>")
	s.Require().NoError(err)
	s.Contains(string(payload), "&lt;&amp;&gt;")
}

func TestCorreiosTestSuite(t *testing.T) {
	suite.Run(t, new(CorreiosTestSuite))
}
