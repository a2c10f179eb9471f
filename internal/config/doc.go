// Package config loads and writes the YAML configuration shared by cepr
// and ceprd.
//
// # Configuration Structure
//
//	socket:
//	  path: /var/run/ceprd.socket   # Unix socket served by ceprd
//	lookup:
//	  provider_timeout: 10s         # per-provider bound, 0 disables it
//	http:
//	  timeout: 15s
//	  user_agent: cepr/v0.1.0
//	dns:
//	  resolvers: []                 # empty: system resolver
//	  timeout: 5s
//	providers:
//	  viacep: https://viacep.com.br
//	  cepla: http://cep.la
//	  correios: https://apps.correios.com.br/SigepMasterJPA/AtendeClienteService/AtendeCliente
//
// Only endpoints are configurable. Every lookup still races exactly
// ViaCEP, CepLá and Correios.
//
// # Basic Usage
//
//	provider := config.New("")
//	cfg, err := provider.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A missing file yields Default(). A partial file overrides only the
// keys it names. Validate reports every problem it finds, combined with
// go.uber.org/multierr, wrapped in ErrInvalidConfig.
//
// Save writes through filesys.AtomicWrite, so a concurrent reader never
// sees a truncated file.
package config
