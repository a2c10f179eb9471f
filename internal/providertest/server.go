// Package providertest runs an in-process fake of the ViaCEP, CepLá and
// Correios services for tests.
package providertest

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lc/cepr/pkg/cep"
)

var _digits = regexp.MustCompile(`^[0-9]{8}$`)

// Known is the fixture data served by every fake provider.
var Known = map[string]cep.Address{
	"70150903": {
		CEP:          "70150903",
		Street:       "SPP",
		Details:      "Palácio da Alvorada (Residência Oficial do Presidente da República)",
		Neighborhood: "Zona Cívico-Administrativa",
		City:         "Brasília",
		State:        "DF",
	},
	"01001000": {
		CEP:          "01001000",
		Street:       "Praça da Sé",
		Details:      "lado ímpar",
		Neighborhood: "Sé",
		City:         "São Paulo",
		State:        "SP",
	},
}

// Server fakes all three providers under /viacep, /cepla and /correios.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	status map[cep.Source]int
	delay  map[cep.Source]time.Duration
	hits   map[cep.Source]int
}

// New starts a Server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		status: make(map[cep.Source]int),
		delay:  make(map[cep.Source]time.Duration),
		hits:   make(map[cep.Source]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /viacep/ws/{cep}/json/", s.wrap(cep.SourceViaCEP, s.viacep))
	mux.HandleFunc("GET /cepla/{cep}", s.wrap(cep.SourceCepla, s.cepla))
	mux.HandleFunc("POST /correios", s.wrap(cep.SourceCorreios, s.correios))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// ViaCEPURL is the base URL to hand to viacep.New.
func (s *Server) ViaCEPURL() string { return s.URL + "/viacep" }

// CeplaURL is the base URL to hand to cepla.New.
func (s *Server) CeplaURL() string { return s.URL + "/cepla" }

// CorreiosURL is the endpoint to hand to correios.New.
func (s *Server) CorreiosURL() string { return s.URL + "/correios" }

// FailWith makes src answer every request with status.
func (s *Server) FailWith(src cep.Source, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[src] = status
}

// Delay holds every response of src for d, or until the client gives up.
func (s *Server) Delay(src cep.Source, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[src] = d
}

// Hits returns how many requests src received.
func (s *Server) Hits(src cep.Source) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[src]
}

func (s *Server) wrap(src cep.Source, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[src]++
		status, delay := s.status[src], s.delay[src]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next(w, r)
	}
}

func (s *Server) viacep(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("cep")
	if !_digits.MatchString(code) {
		http.Error(w, "<h3>Verifique a sua URL (Bad Request)</h3>", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	addr, ok := Known[code]
	if !ok {
		_, _ = w.Write([]byte(`{"erro": "true"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"cep":         code[:5] + "-" + code[5:],
		"logradouro":  addr.Street,
		"complemento": "",
		"bairro":      addr.Neighborhood,
		"localidade":  addr.City,
		"uf":          addr.State,
		"ibge":        "5300108",
	})
}

func (s *Server) cepla(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	addr, ok := Known[r.PathValue("cep")]
	if !ok || r.Header.Get("Accept") != "application/json" {
		_, _ = w.Write([]byte("[]"))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"cep":        addr.CEP,
		"uf":         addr.State,
		"cidade":     addr.City,
		"bairro":     addr.Neighborhood,
		"logradouro": addr.Street,
		"aux":        addr.Details,
	})
}

func (s *Server) correios(w http.ResponseWriter, r *http.Request) {
	var env struct {
		Body struct {
			Consulta struct {
				CEP string `xml:"cep"`
			} `xml:"consultaCEP"`
		} `xml:"Body"`
	}
	if err := xml.NewDecoder(r.Body).Decode(&env); err != nil {
		writeFault(w, "Envelope inválido")
		return
	}

	code := env.Body.Consulta.CEP
	if !_digits.MatchString(code) {
		writeFault(w, "CEP INVÁLIDO")
		return
	}
	addr, ok := Known[code]
	if !ok {
		writeFault(w, "CEP NAO ENCONTRADO")
		return
	}

	var b strings.Builder
	b.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`)
	b.WriteString(`<ns2:consultaCEPResponse xmlns:ns2="http://cliente.bean.master.sigep.bsb.correios.com.br/"><return>`)
	for _, f := range [][2]string{
		{"bairro", addr.Neighborhood},
		{"cep", addr.CEP},
		{"cidade", addr.City},
		{"complemento2", ""},
		{"end", addr.Street},
		{"uf", addr.State},
	} {
		b.WriteString("<" + f[0] + ">")
		_ = xml.EscapeText(&b, []byte(f[1]))
		b.WriteString("</" + f[0] + ">")
	}
	b.WriteString(`</return></ns2:consultaCEPResponse></soap:Body></soap:Envelope>`)

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func writeFault(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintf(w,
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`+
			`<soap:Fault><faultcode>soap:Server</faultcode><faultstring>%s</faultstring></soap:Fault>`+
			`</soap:Body></soap:Envelope>`, msg)
}
