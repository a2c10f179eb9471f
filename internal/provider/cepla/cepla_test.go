package cepla

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"github.com/lc/cepr/internal/providertest"
	"github.com/lc/cepr/pkg/cep"
)

type CeplaTestSuite struct {
	suite.Suite
	srv      *providertest.Server
	provider *Provider
}

func (s *CeplaTestSuite) SetupTest() {
	s.srv = providertest.New(s.T())
	s.provider = New(http.DefaultClient, s.srv.CeplaURL()+"/")
}

func (s *CeplaTestSuite) TestLookupKnownCodes() {
	want := providertest.Known["70150903"]

	for _, code := range []string{"70150903", "70150-903"} {
		s.Run(code, func() {
			addr, err := s.provider.Lookup(context.Background(), code)
			s.Require().NoError(err)
			if diff := cmp.Diff(want, addr); diff != "" {
				s.Failf("address mismatch", "(-want +got):\n%s", diff)
			}
		})
	}
}

func (s *CeplaTestSuite) TestMalformedCodeIsBodyParsingError() {
	_, err := s.provider.Lookup(context.Background(), "123")

	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.SourceCepla, e.Source)
	s.Equal(cep.KindBodyParsing, e.Kind)
	s.Equal("[]", e.Body)
	s.False(errors.Is(err, cep.ErrNotFound))
}

func (s *CeplaTestSuite) TestEmptyObjectIsNotFound() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(http.DefaultClient, srv.URL).Lookup(context.Background(), "70150903")
	s.True(errors.Is(err, cep.ErrNotFound))
	s.True(cep.IsKind(err, cep.KindBodyParsing))
}

func (s *CeplaTestSuite) TestStatusErrors() {
	testCases := []struct {
		status   int
		wantKind cep.Kind
	}{
		{status: http.StatusNotFound, wantKind: cep.KindClient},
		{status: http.StatusBadGateway, wantKind: cep.KindServer},
	}

	for _, tc := range testCases {
		s.Run(http.StatusText(tc.status), func() {
			s.srv.FailWith(cep.SourceCepla, tc.status)

			_, err := s.provider.Lookup(context.Background(), "70150903")

			var e *cep.Error
			s.Require().ErrorAs(err, &e)
			s.Equal(tc.wantKind, e.Kind)
			s.Equal(tc.status, e.Code)
		})
	}
}

func TestCeplaTestSuite(t *testing.T) {
	suite.Run(t, new(CeplaTestSuite))
}
