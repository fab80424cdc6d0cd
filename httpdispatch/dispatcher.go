package httpdispatch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrTimeout is returned (wrapped) when a dispatch exceeds its timeout,
// distinguishable from generic NetworkFailure per §7.
var ErrTimeout = errors.New("httpdispatch: request timed out")

// TLSConfig carries the ssl_verify / client-cert settings of an ApiConfig.
type TLSConfig struct {
	Verify            string // "true" | "false" | path to a CA bundle
	ClientCertEnabled bool
	ClientCert        string
	ClientKey         string
}

// Dispatcher executes HTTP requests, holding the keyed-session client pool
// for use_session APIs.
type Dispatcher struct {
	sessions map[string]*http.Client
}

// NewDispatcher returns a Dispatcher with no sessions yet created.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{sessions: make(map[string]*http.Client)}
}

// CloseSessions closes idle connections on every keyed session and clears
// the map, mirroring varstore.Store.Reset's session teardown.
func (d *Dispatcher) CloseSessions() {
	for k, c := range d.sessions {
		c.CloseIdleConnections()
		delete(d.sessions, k)
	}
}

func (d *Dispatcher) clientFor(apiID string, useSession bool, tlsCfg TLSConfig, timeout time.Duration) (*http.Client, error) {
	if !useSession {
		return buildClient(tlsCfg, timeout)
	}
	if c, ok := d.sessions[apiID]; ok {
		return c, nil
	}
	c, err := buildClient(tlsCfg, timeout)
	if err != nil {
		return nil, err
	}
	d.sessions[apiID] = c
	return c, nil
}

func buildClient(cfg TLSConfig, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{}

	if cfg.Verify == "false" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // honors ApiConfig.ssl_verify = "false"
	} else if cfg.Verify != "" && cfg.Verify != "true" {
		pool := x509.NewCertPool()
		pem, err := os.ReadFile(cfg.Verify)
		if err != nil {
			return nil, fmt.Errorf("httpdispatch: read ca bundle: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("httpdispatch: invalid ca bundle %s", cfg.Verify)
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.RootCAs = pool
	}

	if cfg.ClientCertEnabled && cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("httpdispatch: load client cert: %w", err)
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.Certificates = []tls.Certificate{cert}
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// Result is the dispatch outcome: status, response headers, and raw body.
type Result struct {
	Status  int
	Headers map[string]string
	Body    string
}

// DoSync executes req synchronously, applying tlsCfg and timeout, reusing
// apiID's keyed session when useSession is set.
func (d *Dispatcher) DoSync(ctx context.Context, apiID string, useSession bool, req *Request, tlsCfg TLSConfig, timeout time.Duration) (Result, error) {
	client, err := d.clientFor(apiID, useSession, tlsCfg, timeout)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return do(ctx, client, req)
}

// DoAsync mirrors DoSync's kwargs-building semantics but runs the request
// on its own goroutine with a connect timeout of min(timeout, 10s) and a
// read/write/pool timeout of timeout, returning once the goroutine
// completes or ctx's deadline elapses. One *http.Client per keyed session
// is already goroutine-safe, so no shared event-loop state is needed.
func (d *Dispatcher) DoAsync(ctx context.Context, apiID string, useSession bool, req *Request, tlsCfg TLSConfig, timeout time.Duration) (Result, error) {
	connectTimeout := timeout
	if connectTimeout > 10*time.Second {
		connectTimeout = 10 * time.Second
	}

	client, err := d.clientFor(apiID, useSession, tlsCfg, timeout)
	if err != nil {
		return Result{}, err
	}
	if tr, ok := client.Transport.(*http.Transport); ok {
		tr.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	}

	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	go func() {
		res, err := do(reqCtx, client, req)
		ch <- outcome{res, err}
	}()

	select {
	case o := <-ch:
		return o.res, o.err
	case <-reqCtx.Done():
		return Result{}, fmt.Errorf("%w: async request after %v", ErrTimeout, timeout)
	}
}

func do(ctx context.Context, client *http.Client, req *Request) (Result, error) {
	var bodyReader io.Reader
	contentType := ""
	if req.IsMultipart {
		encoded, ct, err := EncodeMultipart(req.Multipart, os.ReadFile)
		if err != nil {
			return Result{}, err
		}
		bodyReader = newReader(encoded)
		contentType = ct
	} else if len(req.BodyReader) > 0 {
		bodyReader = newReader(req.BodyReader)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return Result{}, fmt.Errorf("httpdispatch: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, truncateErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, truncateErr(err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return Result{Status: resp.StatusCode, Headers: headers, Body: string(body)}, nil
}

// truncateErr bounds a NetworkFailure message to 400 chars per §7.
func truncateErr(err error) error {
	msg := err.Error()
	if len(msg) > 400 {
		msg = msg[:400]
	}
	return fmt.Errorf("%s", msg)
}

func newReader(b []byte) io.Reader {
	return strings.NewReader(string(b))
}
