// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	rootcerts "github.com/hashicorp/go-rootcerts"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"golang.org/x/time/rate"
)

const (
	EnvCaskAddr          = "CASK_ADDR"
	EnvCaskToken         = "CASK_TOKEN"
	EnvCaskCACert        = "CASK_CACERT"
	EnvCaskCAPath        = "CASK_CAPATH"
	EnvCaskClientCert    = "CASK_CLIENT_CERT"
	EnvCaskClientKey     = "CASK_CLIENT_KEY"
	EnvCaskClientTimeout = "CASK_CLIENT_TIMEOUT"
	EnvCaskTLSInsecure   = "CASK_TLS_INSECURE"
	EnvCaskTLSServerName = "CASK_TLS_SERVER_NAME"
	EnvCaskMaxRetries    = "CASK_MAX_RETRIES"
	EnvCaskRateLimit     = "CASK_RATE_LIMIT"
	EnvCaskSRVLookup     = "CASK_SRV_LOOKUP"
	EnvCaskUserProject   = "CASK_USER_PROJECT"
)

// Config is used to configure the creation of the client
type Config struct {
	// Addr is the address of the Cask controller. This should be a complete
	// URL such as "http://cask.example.com". If you need a custom SSL cert or
	// want to enable insecure mode, you need to specify a custom HttpClient.
	Addr string

	// Token is the client token that results from authentication and can be
	// used to make calls into Cask
	Token string

	// UserProject is the project billed for requests made with this client,
	// if not overridden per-call
	UserProject string

	// HttpClient is the HTTP client to use. Cask sets sane defaults for the
	// http.Client and its associated http.Transport created in DefaultConfig.
	// If you must modify Cask's defaults, it is suggested that you start with
	// that client and modify as needed rather than start with an empty client
	// (or http.DefaultClient).
	HttpClient *http.Client

	// TLSConfig contains TLS configuration information. After modifying these
	// values, ConfigureTLS should be called.
	TLSConfig *TLSConfig

	// Headers contains extra headers that will be added to any request
	Headers http.Header

	// MaxRetries controls the maximum number of times to retry when a 5xx
	// error occurs. Set to 0 to disable retrying. Defaults to 2 (for a total
	// of three tries).
	MaxRetries int

	// Timeout is for setting custom timeout parameter in the HttpClient
	Timeout time.Duration

	// If there is an error when creating the configuration, this will be the
	// error
	Error error

	// The Backoff function to use; a default is used if not provided
	Backoff retryablehttp.Backoff

	// The CheckRetry function to use; a default is used if not provided
	CheckRetry retryablehttp.CheckRetry

	// Limiter is the rate limiter used by the client. If this pointer is nil,
	// then there will be no limit set. In contrast, if this pointer is set,
	// even to an empty struct, then that limiter will be used. Note that an
	// empty Limiter is equivalent to blocking all events.
	Limiter *rate.Limiter

	// OutputCurlString causes the actual request to return an error of type
	// *OutputStringError. Type asserting the error message will allow
	// fetching a cURL-compatible string for the operation.
	//
	// Note: It is not thread-safe to set this and make concurrent requests
	// with the same client. Cloning a client will not clone this value.
	OutputCurlString bool

	// SRVLookup enables the client to look up the host through a DNS SRV
	// lookup
	SRVLookup bool
}

// TLSConfig contains the parameters needed to configure TLS on the HTTP
// client used to communicate with Cask.
type TLSConfig struct {
	// CACert is the path to a PEM-encoded CA cert file to use to verify the
	// Cask server SSL certificate.
	CACert string

	// CAPath is the path to a directory of PEM-encoded CA cert files to
	// verify the Cask server SSL certificate.
	CAPath string

	// ClientCert is the path to the certificate for Cask communication
	ClientCert string

	// ClientKey is the path to the private key for Cask communication
	ClientKey string

	// ServerName, if set, is used to set the SNI host when connecting via
	// TLS.
	ServerName string

	// Insecure enables or disables SSL verification
	Insecure bool
}

// DefaultConfig returns a default configuration for the client. It is
// safe to modify the return value of this function.
//
// The default Addr is https://127.0.0.1:9400, but this can be overridden by
// setting the `CASK_ADDR` environment variable.
//
// If an error is encountered, the Error field of the returned Config will be
// set.
func DefaultConfig() *Config {
	config := &Config{
		Addr:       "https://127.0.0.1:9400",
		HttpClient: cleanhttp.DefaultPooledClient(),
		Timeout:    time.Second * 60,
	}

	// We read the environment now; after DefaultConfig returns the caller can
	// override values from command line flags, which should take precedence.
	if err := config.ReadEnvironment(); err != nil {
		config.Error = err
		return config
	}

	transport := config.HttpClient.Transport.(*http.Transport)
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	config.Backoff = retryablehttp.LinearJitterBackoff
	config.MaxRetries = 2
	config.Headers = make(http.Header)

	return config
}

// ConfigureTLS takes a set of TLS configurations and applies those to the
// HTTP client.
func (c *Config) ConfigureTLS() error {
	if c.HttpClient == nil {
		c.HttpClient = DefaultConfig().HttpClient
	}
	clientTLSConfig := c.HttpClient.Transport.(*http.Transport).TLSClientConfig

	var clientCert tls.Certificate
	foundClientCert := false

	switch {
	case c.TLSConfig.ClientCert != "" && c.TLSConfig.ClientKey != "":
		var err error
		clientCert, err = tls.LoadX509KeyPair(c.TLSConfig.ClientCert, c.TLSConfig.ClientKey)
		if err != nil {
			return err
		}
		foundClientCert = true
	case c.TLSConfig.ClientCert != "" || c.TLSConfig.ClientKey != "":
		return fmt.Errorf("both client cert and client key must be provided")
	}

	if c.TLSConfig.CACert != "" || c.TLSConfig.CAPath != "" {
		rootConfig := &rootcerts.Config{
			CAFile: c.TLSConfig.CACert,
			CAPath: c.TLSConfig.CAPath,
		}
		if err := rootcerts.ConfigureTLS(clientTLSConfig, rootConfig); err != nil {
			return err
		}
	}

	if c.TLSConfig.Insecure {
		clientTLSConfig.InsecureSkipVerify = true
	}

	if foundClientCert {
		// We use this function to ignore the server's preferential list of
		// CAs, otherwise any CA used for the cert auth backend must be in the
		// server's CA pool
		clientTLSConfig.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return &clientCert, nil
		}
	}

	if c.TLSConfig.ServerName != "" {
		clientTLSConfig.ServerName = c.TLSConfig.ServerName
	}

	return nil
}

// setAddr normalizes a given address, trimming any trailing slash and any
// trailing "/v1"; our requests add that back so we don't require it from
// users.
func (c *Config) setAddr(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("error parsing address: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Path = strings.TrimSuffix(u.Path, "/v1")
	c.Addr = u.String()
	return nil
}

// ReadEnvironment reads configuration information from the environment. If
// there is an error, no configuration value is updated.
func (c *Config) ReadEnvironment() error {
	var envCACert string
	var envCAPath string
	var envClientCert string
	var envClientKey string
	var envInsecure bool
	var envServerName string

	// Parse the environment variables
	if v := os.Getenv(EnvCaskAddr); v != "" {
		if err := c.setAddr(v); err != nil {
			return err
		}
	}

	if v := os.Getenv(EnvCaskToken); v != "" {
		c.Token = v
	}

	if v := os.Getenv(EnvCaskUserProject); v != "" {
		c.UserProject = v
	}

	if v := os.Getenv(EnvCaskMaxRetries); v != "" {
		maxRetries, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		c.MaxRetries = int(maxRetries)
	}

	if v := os.Getenv(EnvCaskSRVLookup); v != "" {
		lookup, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse %s", EnvCaskSRVLookup)
		}
		c.SRVLookup = lookup
	}

	if t := os.Getenv(EnvCaskClientTimeout); t != "" {
		clientTimeout, err := parseutil.ParseDurationSecond(t)
		if err != nil {
			return fmt.Errorf("could not parse %q", EnvCaskClientTimeout)
		}
		c.Timeout = clientTimeout
	}

	if v := os.Getenv(EnvCaskRateLimit); v != "" {
		rateLimit, burstLimit, err := parseRateLimit(v)
		if err != nil {
			return err
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rateLimit), burstLimit)
	}

	// TLS Config
	{
		var foundTLSConfig bool
		if v := os.Getenv(EnvCaskCACert); v != "" {
			foundTLSConfig = true
			envCACert = v
		}
		if v := os.Getenv(EnvCaskCAPath); v != "" {
			foundTLSConfig = true
			envCAPath = v
		}
		if v := os.Getenv(EnvCaskClientCert); v != "" {
			foundTLSConfig = true
			envClientCert = v
		}
		if v := os.Getenv(EnvCaskClientKey); v != "" {
			foundTLSConfig = true
			envClientKey = v
		}
		if v := os.Getenv(EnvCaskTLSInsecure); v != "" {
			foundTLSConfig = true
			var err error
			envInsecure, err = strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("could not parse %s", EnvCaskTLSInsecure)
			}
		}
		if v := os.Getenv(EnvCaskTLSServerName); v != "" {
			foundTLSConfig = true
			envServerName = v
		}
		if foundTLSConfig {
			c.TLSConfig = &TLSConfig{
				CACert:     envCACert,
				CAPath:     envCAPath,
				ClientCert: envClientCert,
				ClientKey:  envClientKey,
				ServerName: envServerName,
				Insecure:   envInsecure,
			}
			return c.ConfigureTLS()
		}
	}

	return nil
}

func parseRateLimit(val string) (rate float64, burst int, err error) {
	_, err = fmt.Sscanf(val, "%f:%d", &rate, &burst)
	if err != nil {
		rate, err = strconv.ParseFloat(val, 64)
		if err != nil {
			err = fmt.Errorf("%v was provided but incorrectly formatted", EnvCaskRateLimit)
		}
		burst = int(rate)
	}

	return rate, burst, err
}

// Client is the client to the Cask API. Create a client with NewClient.
type Client struct {
	modifyLock sync.RWMutex
	config     *Config
}

// NewClient returns a new client for the given configuration.
//
// If the configuration is nil, Cask will use configuration from
// DefaultConfig(), which is the recommended starting configuration.
//
// If the environment variable `CASK_TOKEN` is present, the token will be
// automatically added to the client. Otherwise, you must manually call
// `SetToken()`.
func NewClient(c *Config) (*Client, error) {
	def := DefaultConfig()
	if def == nil {
		return nil, fmt.Errorf("could not create/read default configuration")
	}
	if def.Error != nil {
		return nil, fmt.Errorf("error encountered setting up default configuration: %w", def.Error)
	}

	if c == nil {
		c = def
	}

	if c.HttpClient == nil {
		c.HttpClient = def.HttpClient
	}
	if c.HttpClient.Transport == nil {
		c.HttpClient.Transport = def.HttpClient.Transport
	}
	if c.HttpClient.CheckRedirect == nil {
		// Ensure redirects are not automatically followed. Returning
		// http.ErrUseLastResponse causes the Go net library to not close the
		// response body and to nil out the error; otherwise retry clients may
		// try three times on every redirect because this function's error (to
		// prevent redirects) passes through to them.
		c.HttpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if c.Addr != "" {
		if err := c.setAddr(c.Addr); err != nil {
			return nil, err
		}
	}

	return &Client{
		config: c,
	}, nil
}

// Addr returns the current address of the client
func (c *Client) Addr() string {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	return c.config.Addr
}

// SetAddr sets the address of Cask in the client. The format of address
// should be "<Scheme>://<Host>:<Port>". Setting this on a client will
// override the value of the CASK_ADDR environment variable.
func (c *Client) SetAddr(addr string) error {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	return c.config.setAddr(addr)
}

// SetLimiter will set the rate limiter for this client. This method is
// thread-safe. rateLimit and burst are specified according to
// https://godoc.org/golang.org/x/time/rate#NewLimiter
func (c *Client) SetLimiter(rateLimit float64, burst int) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
}

// SetMaxRetries sets the number of retries that will be used in the case of
// certain errors
func (c *Client) SetMaxRetries(retries int) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.MaxRetries = retries
}

// SetCheckRetry sets the CheckRetry function to be used for future requests.
func (c *Client) SetCheckRetry(checkRetry retryablehttp.CheckRetry) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.CheckRetry = checkRetry
}

// SetClientTimeout sets the client request timeout
func (c *Client) SetClientTimeout(timeout time.Duration) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Timeout = timeout
}

func (c *Client) SetOutputCurlString(curl bool) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.OutputCurlString = curl
}

// Token returns the current token in use by the client
func (c *Client) Token() string {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	return c.config.Token
}

// SetToken sets the token directly. This won't perform any auth
// verification, it simply sets the token properly for future requests.
func (c *Client) SetToken(token string) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Token = token
}

// UserProject returns the default billing project in use by the client
func (c *Client) UserProject() string {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	return c.config.UserProject
}

// SetUserProject sets the project billed for requests made with this client.
// Resource package options can still override it per-call.
func (c *Client) SetUserProject(project string) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.UserProject = project
}

// SetHeaders clears all previous headers and uses only the given ones going
// forward.
func (c *Client) SetHeaders(headers http.Header) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Headers = headers
}

// SetBackoff sets the backoff function to be used for future requests.
func (c *Client) SetBackoff(backoff retryablehttp.Backoff) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Backoff = backoff
}

// Clone creates a new client with the same configuration. Note that the same
// underlying http.Client is used; modifying the client from more than one
// goroutine at once may not be safe, so modify the client as needed and then
// clone.
func (c *Client) Clone() *Client {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	config := c.config

	newConfig := &Config{
		Addr:             config.Addr,
		Token:            config.Token,
		UserProject:      config.UserProject,
		HttpClient:       config.HttpClient,
		Headers:          make(http.Header),
		MaxRetries:       config.MaxRetries,
		Timeout:          config.Timeout,
		Backoff:          config.Backoff,
		CheckRetry:       config.CheckRetry,
		Limiter:          config.Limiter,
		OutputCurlString: config.OutputCurlString,
		SRVLookup:        config.SRVLookup,
	}
	if config.TLSConfig != nil {
		newConfig.TLSConfig = new(TLSConfig)
		*newConfig.TLSConfig = *config.TLSConfig
	}
	for k, v := range config.Headers {
		vSlice := make([]string, len(v))
		copy(vSlice, v)
		newConfig.Headers[k] = vSlice
	}

	return &Client{
		config: newConfig,
	}
}

func copyHeaders(in http.Header) http.Header {
	ret := make(http.Header)
	for k, v := range in {
		for _, val := range v {
			ret[k] = append(ret[k], val)
		}
	}

	return ret
}

// NewRequest creates a new raw request object to query the Cask controller
// configured for this client. This is an advanced method and generally
// doesn't need to be called externally.
func (c *Client) NewRequest(ctx context.Context, method, requestPath string, body any, opt ...Option) (*retryablehttp.Request, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	c.modifyLock.RLock()
	addr := c.config.Addr
	srvLookup := c.config.SRVLookup
	token := c.config.Token
	httpClient := c.config.HttpClient
	headers := copyHeaders(c.config.Headers)
	c.modifyLock.RUnlock()

	opts := getOpts(opt...)

	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	if u.Scheme == "unix" {
		// The address points to a unix domain socket; talk HTTP over the
		// socket and give the URL a synthetic host.
		socket := strings.TrimPrefix(addr, "unix://")
		transport := httpClient.Transport.(*http.Transport)
		transport.DialContext = func(context.Context, string, string) (net.Conn, error) {
			dialer := net.Dialer{}
			return dialer.DialContext(ctx, "unix", socket)
		}
		u.Scheme = "http"
		u.Host = socket
		u.Path = ""
	}

	host := u.Host
	// If SRV records exist (see
	// https://tools.ietf.org/html/draft-andrews-http-srv-02), lookup the SRV
	// record and take the highest match; this is not designed for
	// high-availability, just discovery. The internet draft specifies that
	// the SRV record is ignored if a port is given.
	if u.Port() == "" && srvLookup {
		_, addrs, err := net.LookupSRV("http", "tcp", u.Hostname())
		if err != nil {
			return nil, fmt.Errorf("error performing SRV lookup of http:tcp:%s: %w", u.Hostname(), err)
		}
		if len(addrs) > 0 {
			host = fmt.Sprintf("%s:%d", addrs[0].Target, addrs[0].Port)
		}
	}

	// Build the body based on the type
	var rawBody any
	if body != nil {
		switch t := body.(type) {
		case io.ReadCloser, io.Reader:
			rawBody = t
		case []byte:
			rawBody = t
		default:
			b, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("error marshaling body: %w", err)
			}
			rawBody = b
		}
	}

	req, err := retryablehttp.NewRequest(method, u.Scheme+"://"+host+path.Join(u.Path, "/v1", requestPath), rawBody)
	if err != nil {
		return nil, err
	}
	if opts.withSkipCurlOutput {
		ctx = context.WithValue(ctx, contextSkipCurlOutput, true)
	}
	req.Request = req.Request.WithContext(ctx)

	req.Header = headers
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// Do takes a properly configured request and applies client configuration to
// it, returning the response.
func (c *Client) Do(r *retryablehttp.Request) (*Response, error) {
	c.modifyLock.RLock()
	limiter := c.config.Limiter
	maxRetries := c.config.MaxRetries
	checkRetry := c.config.CheckRetry
	backoff := c.config.Backoff
	httpClient := c.config.HttpClient
	timeout := c.config.Timeout
	token := c.config.Token
	outputCurlString := c.config.OutputCurlString
	c.modifyLock.RUnlock()

	ctx := r.Context()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// Sanity check the token before potentially erroring from the API
	idx := strings.IndexFunc(token, func(c rune) bool {
		return !unicode.IsPrint(c)
	})
	if idx != -1 {
		return nil, fmt.Errorf("configured Cask token contains non-printable characters and cannot be used")
	}

	if outputCurlString {
		// Capture the request and bail before any network activity, unless
		// this particular request asked to be skipped (e.g. a version lookup
		// preceding the user's actual call).
		if skip, ok := ctx.Value(contextSkipCurlOutput).(bool); !ok || !skip {
			LastOutputStringError = &OutputStringError{Request: r}
			return nil, LastOutputStringError
		}
	}

	if timeout != 0 {
		// Note: we purposefully do not call cancel manually. When canceled,
		// reading the response body errors with context canceled even though
		// the request itself completed.
		ctx, _ = context.WithTimeout(ctx, timeout) //nolint:govet
	}
	r.Request = r.Request.WithContext(ctx)

	if backoff == nil {
		backoff = retryablehttp.LinearJitterBackoff
	}

	if checkRetry == nil {
		checkRetry = retryablehttp.DefaultRetryPolicy
	}

	client := &retryablehttp.Client{
		HTTPClient:   httpClient,
		RetryWaitMin: 1000 * time.Millisecond,
		RetryWaitMax: 1500 * time.Millisecond,
		RetryMax:     maxRetries,
		Backoff:      backoff,
		CheckRetry:   checkRetry,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	result, err := client.Do(r)
	if err != nil {
		if strings.Contains(err.Error(), "tls: oversized") {
			err = fmt.Errorf(
				"%w\n\n"+
					"This error usually means that the controller is running with TLS disabled\n"+
					"but the client is configured to use TLS. Please either enable TLS\n"+
					"on the server or run the client with -addr set to an address\n"+
					"that uses the http protocol:\n\n"+
					"    cask <command> -addr http://<address>\n\n"+
					"You can also set the CASK_ADDR environment variable:\n\n"+
					"    CASK_ADDR=http://<address> cask <command>\n\n"+
					"where <address> is replaced by the actual address to the controller.",
				err)
		}
		return nil, err
	}

	return &Response{resp: result}, nil
}
