package network

import (
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

const defaultTimeout = 30 * time.Second

// Doer is the transport the API client needs.
type Doer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

type Client struct {
	http      tls_client.HttpClient
	userAgent string
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Proxy     string
}

func NewClient(opts Options) (*Client, error) {
	jar, _ := fhttpcookiejar.New(nil)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	clientOpts := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(seconds),
		tls_client.WithCookieJar(jar),
	}
	if opts.Proxy != "" {
		clientOpts = append(clientOpts, tls_client.WithProxyUrl(opts.Proxy))
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), clientOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:      client,
		userAgent: opts.UserAgent,
	}, nil
}

func (c *Client) Do(req *fhttp.Request) (*fhttp.Response, error) {
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.http.Do(req)
}
