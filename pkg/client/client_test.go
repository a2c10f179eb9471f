package client_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lc/cepr/internal/socket"
	"github.com/lc/cepr/pkg/api"
	"github.com/lc/cepr/pkg/cep"
	"github.com/lc/cepr/pkg/client"
)

func serve(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r, err := cep.New([]cep.Provider{
		cep.ProviderFunc(cep.SourceCepla, func(_ context.Context, code string) (cep.Address, error) {
			if code != "01001000" {
				return cep.Address{}, cep.NewBodyParsingError(cep.SourceCepla, cep.ErrNotFound, []byte("[]"))
			}
			return cep.Address{CEP: code, City: "São Paulo", State: "SP"}, nil
		}),
	})
	require.NoError(t, err)

	dir, err := os.MkdirTemp("", "cepr-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "ceprd.sock")

	ln, err := socket.Listen(path)
	require.NoError(t, err)

	srv := api.New(r)
	go srv.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return path
}

func TestLookup(t *testing.T) {
	c := client.New(serve(t), nil)

	resp, err := c.Lookup(context.Background(), "01001000")
	require.NoError(t, err)
	assert.Equal(t, cep.SourceCepla, resp.Source)
	assert.Equal(t, "São Paulo", resp.Address.City)
	assert.NotEmpty(t, resp.ID)
}

func TestLookupFailure(t *testing.T) {
	c := client.New(serve(t), nil)

	_, err := c.Lookup(context.Background(), "99999-999")
	require.Error(t, err)

	var apiErr *api.ErrorResponse
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "all_failed", apiErr.Kind)
	require.Len(t, apiErr.Errors, 1)
	assert.Equal(t, cep.SourceCepla, apiErr.Errors[0].Source)
	assert.Equal(t, "body_parsing", apiErr.Errors[0].Kind)
}

func TestStatus(t *testing.T) {
	c := client.New(serve(t), nil)

	_, _ = c.Lookup(context.Background(), "01001000")
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Lookups)
	assert.Zero(t, st.Failures)
}

func TestDaemonNotRunning(t *testing.T) {
	cfg := socket.DefaultConfig()
	cfg.WaitTimeout = 100 * time.Millisecond
	cfg.RetryInterval = 10 * time.Millisecond
	c := client.New(filepath.Join(t.TempDir(), "missing.sock"), socket.New(cfg, nil))

	_, err := c.Status(context.Background())
	assert.ErrorIs(t, err, socket.ErrNotRunning)
}
