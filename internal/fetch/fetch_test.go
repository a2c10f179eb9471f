package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lc/cepr/pkg/cep"
)

type FetchTestSuite struct {
	suite.Suite
	client *http.Client
}

func (s *FetchTestSuite) SetupTest() {
	s.client = &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *FetchTestSuite) get(url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	s.Require().NoError(err)
	return Do(s.client, req, cep.SourceViaCEP)
}

func (s *FetchTestSuite) TestStatusBands() {
	testCases := []struct {
		name     string
		status   int
		wantKind cep.Kind
		wantOK   bool
	}{
		{name: "ok", status: http.StatusOK, wantOK: true},
		{name: "no content", status: http.StatusNoContent, wantOK: true},
		{name: "redirect", status: http.StatusFound, wantKind: cep.KindUnknownStatus},
		{name: "not modified", status: http.StatusNotModified, wantKind: cep.KindUnknownStatus},
		{name: "bad request", status: http.StatusBadRequest, wantKind: cep.KindClient},
		{name: "teapot", status: http.StatusTeapot, wantKind: cep.KindClient},
		{name: "internal error", status: http.StatusInternalServerError, wantKind: cep.KindServer},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, wantKind: cep.KindServer},
		{name: "nonstandard", status: 699, wantKind: cep.KindUnknownStatus},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tc.status == http.StatusFound {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := s.get(srv.URL)
			if tc.wantOK {
				s.NoError(err)
				return
			}

			var e *cep.Error
			s.Require().ErrorAs(err, &e)
			s.Equal(tc.wantKind, e.Kind)
			s.Equal(tc.status, e.Code)
			s.Equal(cep.SourceViaCEP, e.Source)
		})
	}
}

func (s *FetchTestSuite) TestTransportFailure() {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := s.get(url)

	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.KindUnexpected, e.Kind)
	s.Equal(cep.SourceViaCEP, e.Source)
}

func (s *FetchTestSuite) TestTruncatedBody() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ce`))
	}))
	defer srv.Close()

	_, err := s.get(srv.URL)

	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.KindMissingBody, e.Kind)
}

func (s *FetchTestSuite) TestErrorStatusIgnoresBody() {
	testCases := []struct {
		name    string
		status  int
		handler http.HandlerFunc
		want    cep.Kind
	}{
		{
			name:   "unknown charset on 5xx",
			status: http.StatusServiceUnavailable,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=x-bogus")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("<h1>manutenção</h1>"))
			},
			want: cep.KindServer,
		},
		{
			name:   "truncated 4xx body",
			status: http.StatusNotFound,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Length", "100")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte("not fo"))
			},
			want: cep.KindClient,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := s.get(srv.URL)

			var e *cep.Error
			s.Require().ErrorAs(err, &e)
			s.Equal(tc.want, e.Kind)
			s.Equal(tc.status, e.Code)
		})
	}
}

func (s *FetchTestSuite) TestUnknownCharsetOn2xx() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=x-bogus")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := s.get(srv.URL)

	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.KindMissingBody, e.Kind)
}

func (s *FetchTestSuite) TestOversizedBody() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"aux":"` + strings.Repeat("a", 2*_maxBody) + `"}`))
	}))
	defer srv.Close()

	_, err := s.get(srv.URL)

	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.KindMissingBody, e.Kind)
	s.ErrorIs(err, errBodyTooLarge)
	s.Empty(e.Body)
}

func (s *FetchTestSuite) TestBodyAtLimit() {
	payload := `"` + strings.Repeat("a", _maxBody-2) + `"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	body, err := s.get(srv.URL)
	s.Require().NoError(err)
	s.Len(body, _maxBody)
}

func (s *FetchTestSuite) TestDeclaredCharsetIsDecoded() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=ISO-8859-1")
		_, _ = w.Write([]byte("{\"cidade\":\"Bras\xedlia\"}"))
	}))
	defer srv.Close()

	body, err := s.get(srv.URL)
	s.Require().NoError(err)

	var out struct {
		City string `json:"cidade"`
	}
	s.Require().NoError(DecodeJSON(cep.SourceCepla, body, &out))
	s.Equal("Brasília", out.City)
}

func (s *FetchTestSuite) TestUndeclaredCharsetIsUntouched() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cidade":"Brasília"}`))
	}))
	defer srv.Close()

	body, err := s.get(srv.URL)
	s.Require().NoError(err)
	s.Equal(`{"cidade":"Brasília"}`, string(body))
}

func (s *FetchTestSuite) TestDecodeJSON() {
	var out struct {
		CEP string `json:"cep"`
	}

	err := DecodeJSON(cep.SourceCepla, []byte("[]"), &out)
	var e *cep.Error
	s.Require().ErrorAs(err, &e)
	s.Equal(cep.KindBodyParsing, e.Kind)
	s.Equal(cep.SourceCepla, e.Source)
	s.Equal("[]", e.Body)

	s.NoError(DecodeJSON(cep.SourceCepla, []byte(`{"cep":"70150903"}`), &out))
	s.Equal("70150903", out.CEP)
}

func TestFetchTestSuite(t *testing.T) {
	suite.Run(t, new(FetchTestSuite))
}
