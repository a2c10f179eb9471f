package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/lc/cepr/internal/buildinfo"
	"github.com/lc/cepr/pkg/api"
	"github.com/lc/cepr/pkg/cep"
)

var brasilia = cep.Address{
	CEP:          "70150903",
	Street:       "SPP",
	Neighborhood: "Zona Cívico-Administrativa",
	City:         "Brasília",
	State:        "DF",
}

type APITestSuite struct {
	suite.Suite
	server *api.Server
}

func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *APITestSuite) SetupTest() {
	r, err := cep.New([]cep.Provider{
		cep.ProviderFunc(cep.SourceViaCEP, func(_ context.Context, code string) (cep.Address, error) {
			if cep.Normalize(code) == brasilia.CEP {
				return brasilia, nil
			}
			return cep.Address{}, cep.NewStatusError(cep.SourceViaCEP, http.StatusBadRequest)
		}),
		cep.ProviderFunc(cep.SourceCorreios, func(context.Context, string) (cep.Address, error) {
			return cep.Address{}, cep.NewStatusError(cep.SourceCorreios, http.StatusInternalServerError)
		}),
	})
	s.Require().NoError(err)
	s.server = api.New(r)
}

func (s *APITestSuite) get(path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) TestAddress() {
	w := s.get("/v1/address/70150-903", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp api.LookupResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(cep.SourceViaCEP, resp.Source)
	s.Equal(brasilia, resp.Address)
	s.Equal(resp.ID, w.Header().Get("X-Request-ID"))
	_, err := uuid.Parse(resp.ID)
	s.NoError(err)
}

func (s *APITestSuite) TestAddressKeepsClientRequestID() {
	id := uuid.NewString()
	w := s.get("/v1/address/70150903", http.Header{"X-Request-Id": {id}})

	s.Equal(id, w.Header().Get("X-Request-ID"))

	w = s.get("/v1/address/70150903", http.Header{"X-Request-Id": {"not-a-uuid"}})
	s.NotEqual("not-a-uuid", w.Header().Get("X-Request-ID"))
}

func (s *APITestSuite) TestAddressAllFailed() {
	w := s.get("/v1/address/123", nil)
	s.Require().Equal(http.StatusBadGateway, w.Code)

	var resp api.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("all_failed", resp.Kind)
	s.Equal(cep.SourceLib, resp.Source)
	s.Contains(resp.Message, "all providers returned errors")

	want := []api.ProviderError{
		{Source: cep.SourceViaCEP, Kind: "client_error", Code: 400, Message: "viacep: client error: status 400"},
		{Source: cep.SourceCorreios, Kind: "server_error", Code: 500, Message: "correios: server error: status 500"},
	}
	sortBySource := cmpopts.SortSlices(func(a, b api.ProviderError) bool { return a.Source < b.Source })
	if diff := cmp.Diff(want, resp.Errors, sortBySource); diff != "" {
		s.Fail("provider errors mismatch (-want +got)", diff)
	}
}

func (s *APITestSuite) TestStatusCounts() {
	s.get("/v1/address/70150903", nil)
	s.get("/v1/address/123", nil)
	s.get("/v1/address/00000000", nil)

	w := s.get("/v1/status", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var st api.StatusResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &st))
	s.Equal(int64(3), st.Lookups)
	s.Equal(int64(2), st.Failures)
	s.Equal([]cep.Source{cep.SourceViaCEP, cep.SourceCorreios}, st.Providers)
	s.Equal(buildinfo.Version, st.Version)
	s.Positive(st.Uptime)
}

func (s *APITestSuite) TestUnknownRoute() {
	s.Equal(http.StatusNotFound, s.get("/v1/rules", nil).Code)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
