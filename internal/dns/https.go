package dns

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

var _ Lookuper = (*HTTPSLookuper)(nil)

// HTTPSLookuper resolves with DNS-over-HTTPS GET requests (RFC 8484).
type HTTPSLookuper struct {
	logger zerolog.Logger

	endpoint string
	qTypes   []uint16
	client   *http.Client
}

func NewHTTPSLookuper(
	logger zerolog.Logger,
	endpoint string,
	qTypes []uint16,
) *HTTPSLookuper {
	return &HTTPSLookuper{
		logger:   logger,
		endpoint: endpoint,
		qTypes:   qTypes,
		client: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConnsPerHost: 100,
				MaxIdleConns:        100,
			},
		},
	}
}

func (hl *HTTPSLookuper) Info() string {
	return "https(" + hl.endpoint + ")"
}

func (hl *HTTPSLookuper) Lookup(ctx context.Context, host string) (string, error) {
	return lookupAllTypes(ctx, host, hl.qTypes, hl.exchange)
}

func (hl *HTTPSLookuper) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	// RFC 8484 recommends an ID of 0 for cache friendliness.
	msg.Id = 0

	pack, err := msg.Pack()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?dns=%s", hl.endpoint, base64.RawURLEncoding.EncodeToString(pack))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/dns-message")

	resp, err := hl.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("doh status %d", resp.StatusCode)
	}

	buf := bytes.Buffer{}
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	resMsg := new(dns.Msg)
	if err := resMsg.Unpack(buf.Bytes()); err != nil {
		return nil, err
	}

	return resMsg, nil
}
