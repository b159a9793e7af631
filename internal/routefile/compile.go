package routefile

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/routing"
)

// compileRoute builds the routing entry for spec. fileBody holds the content
// of spec.File when one is referenced.
func compileRoute(spec *RouteSpec, fileBody []byte) (routing.Route, error) {
	h, err := responder(spec, fileBody)
	if err != nil {
		return routing.Route{}, err
	}

	rt, err := routing.NewRoute(spec.Method, spec.Path, h)
	if err != nil {
		return routing.Route{}, err
	}

	if spec.When != "" {
		program, err := compileCondition(spec.When)
		if err != nil {
			return routing.Route{}, domain.ErrInvalidCondition.WithDetails(spec.When).WithCause(err)
		}
		rt.When = conditionFunc(program, wildcardNames(spec.Path))
	}
	return rt, nil
}

// responder returns the static handler for spec.
func responder(spec *RouteSpec, fileBody []byte) (http.Handler, error) {
	status := spec.status()
	headers := make(http.Header, len(spec.Headers)+1)
	for k, v := range spec.Headers {
		headers.Set(k, v)
	}

	if spec.Redirect != "" {
		target := spec.Redirect
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			copyHeaders(w.Header(), headers)
			http.Redirect(w, r, target, status)
		}), nil
	}

	var body []byte
	switch {
	case spec.JSON != nil:
		data, err := json.Marshal(spec.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode json body: %w", err)
		}
		body = data
		setDefault(headers, "Content-Type", "application/json")
	case spec.File != "":
		body = fileBody
		if ct := mime.TypeByExtension(filepath.Ext(spec.File)); ct != "" {
			setDefault(headers, "Content-Type", ct)
		}
	case spec.Body != "":
		body = []byte(spec.Body)
		setDefault(headers, "Content-Type", "text/plain; charset=utf-8")
	}

	if len(body) > 0 {
		headers.Set("Content-Length", strconv.Itoa(len(body)))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		copyHeaders(w.Header(), headers)
		w.WriteHeader(status)
		if r.Method != http.MethodHead && len(body) > 0 {
			w.Write(body)
		}
	}), nil
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}

func copyHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}
