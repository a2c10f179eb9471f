// Package fetch performs the single HTTP exchange every provider makes
// and classifies its failures into the cep error taxonomy.
package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"golang.org/x/net/html/charset"

	"github.com/lc/cepr/pkg/cep"
)

// _maxBody caps how much of a response body is read.
const _maxBody = 1 << 20

// errBodyTooLarge is the cause reported for a body over _maxBody.
var errBodyTooLarge = fmt.Errorf("body exceeds limit of %d bytes", _maxBody)

// Doer is the subset of *http.Client a provider needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*http.Client)(nil)

// Do sends req and returns its body decoded to UTF-8.
//
// A transport failure is KindUnexpected and any non-2xx status is
// classified by band whatever its body holds. Only a 2xx body that
// cannot be read or decoded, or is over the size cap, is KindMissingBody.
func Do(client Doer, req *http.Request, src cep.Source) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, cep.NewUnexpectedError(src, err)
	}
	defer resp.Body.Close()

	if _, ok := cep.ClassifyStatus(resp.StatusCode); !ok {
		// drained so the connection can be reused
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, _maxBody))
		}
		return nil, cep.NewStatusError(src, resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, cep.NewMissingBodyError(src, err)
	}
	return body, nil
}

// DecodeJSON unmarshals body into v, reporting a KindBodyParsing error
// that carries the raw body on failure.
func DecodeJSON(src cep.Source, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return cep.NewBodyParsingError(src, err, body)
	}
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, errors.New("response has no body")
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, _maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(raw) > _maxBody {
		return nil, errBodyTooLarge
	}

	label := declaredCharset(resp.Header.Get("Content-Type"))
	if label == "" {
		return raw, nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("unsupported body charset %q", label)
	}
	if name == "utf-8" {
		return raw, nil
	}
	body, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s body: %w", name, err)
	}
	return body, nil
}

// declaredCharset returns the charset parameter of a Content-Type, if any.
// Undeclared bodies are passed through untouched.
func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
