package sgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"region-api/internal/metrics"
	"region-api/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	// errCdInvalidToken is returned by SGIS when the access token expired or was revoked.
	errCdInvalidToken = -401

	// tokenExpiryMargin refreshes the token slightly before SGIS would reject it.
	tokenExpiryMargin = time.Minute

	// defaultTokenLifetime applies when the authority omits accessTimeout.
	defaultTokenLifetime = 4 * time.Hour

	// addrTypeAdministrative asks rgeocode for administrative dong level addresses.
	addrTypeAdministrative = "21"
)

// FallbackAddress is answered whenever reverse geocoding cannot produce a real address.
var FallbackAddress = models.AdministrativeAddress{
	ProvinceCode:     "11",
	ProvinceName:     "서울특별시",
	CountyCode:       "11020",
	CountyName:       "중구",
	NeighborhoodCode: "11020550",
	NeighborhoodName: "명동",
}

// Resolution is the outcome of a reverse geocode. When Degraded is set, Address holds
// FallbackAddress and Cause explains why the real lookup failed.
type Resolution struct {
	Address  models.AdministrativeAddress
	Degraded bool
	Cause    error
}

func resolved(addr models.AdministrativeAddress) Resolution {
	return Resolution{Address: addr}
}

func degraded(cause error) Resolution {
	return Resolution{Address: FallbackAddress, Degraded: true, Cause: cause}
}

// Cache stores successful resolutions keyed by a rounded coordinate.
type Cache interface {
	Lookup(ctx context.Context, lat, lon float64) (models.AdministrativeAddress, bool, error)
	Store(ctx context.Context, lat, lon float64, addr models.AdministrativeAddress) error
}

// Client talks to the SGIS OpenAPI3 authentication and reverse geocode endpoints.
// The access token is owned by the client and shared by all goroutines using it.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	cache          Cache
	now            func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default 5s timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache enables the resolution cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithClock overrides time.Now, used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a new SGIS client
func NewClient(baseURL, consumerKey, consumerSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	ErrCd  int             `json:"errCd"`
	ErrMsg string          `json:"errMsg"`
	Result json.RawMessage `json:"result"`
}

type authResult struct {
	AccessToken   string `json:"accessToken"`
	AccessTimeout string `json:"accessTimeout"`
}

type rgeocodeResult struct {
	SidoCd   string `json:"sido_cd"`
	SidoNm   string `json:"sido_nm"`
	SggCd    string `json:"sgg_cd"`
	SggNm    string `json:"sgg_nm"`
	EmdongCd string `json:"emdong_cd"`
	EmdongNm string `json:"emdong_nm"`
	FullAddr string `json:"full_addr"`
}

// APIError is a non-zero SGIS errCd.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sgis error %d: %s", e.Code, e.Message)
}

// AccessToken returns the cached bearer token, fetching a new one when none is cached or
// the cached one is about to expire. Errors wrap models.ErrAuthentication.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(tokenExpiryMargin).Before(c.expiresAt) {
		return c.token, nil
	}

	token, expiresAt, err := c.fetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("sgis: %w: %w", models.ErrAuthentication, err)
	}
	c.token = token
	c.expiresAt = expiresAt
	return token, nil
}

// invalidate drops the cached token if it is still the one that was rejected.
func (c *Client) invalidate(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == rejected {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Time, error) {
	if c.consumerKey == "" || c.consumerSecret == "" {
		return "", time.Time{}, errors.New("missing consumer key or secret")
	}

	q := url.Values{}
	q.Set("consumer_key", c.consumerKey)
	q.Set("consumer_secret", c.consumerSecret)

	var res authResult
	code, msg, err := c.get(ctx, "auth", "/auth/authentication.json", q, &res)
	if err != nil {
		return "", time.Time{}, err
	}
	if code != 0 {
		return "", time.Time{}, &APIError{Code: code, Message: msg}
	}
	if res.AccessToken == "" {
		return "", time.Time{}, errors.New("empty access token")
	}

	expiresAt := c.now().Add(defaultTokenLifetime)
	if ms, err := strconv.ParseInt(res.AccessTimeout, 10, 64); err == nil && ms > 0 {
		expiresAt = time.UnixMilli(ms)
	}
	log.Debug().Time("expires_at", expiresAt).Msg("sgis: access token issued")
	return res.AccessToken, expiresAt, nil
}

// Resolve reverse geocodes a WGS84 coordinate. It never fails: any problem yields a
// degraded Resolution carrying FallbackAddress.
func (c *Client) Resolve(ctx context.Context, lat, lon float64) Resolution {
	if c.cache != nil {
		addr, ok, err := c.cache.Lookup(ctx, lat, lon)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("sgis: cache lookup failed")
		case ok:
			metrics.CacheHitsTotal.Inc()
			return resolved(addr)
		default:
			metrics.CacheMissesTotal.Inc()
		}
	}

	addr, err := c.reverseGeocode(ctx, lat, lon)
	if err != nil {
		metrics.DegradedResolutionsTotal.Inc()
		log.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("sgis: reverse geocode degraded to fallback address")
		return degraded(err)
	}

	if c.cache != nil {
		if err := c.cache.Store(ctx, lat, lon, addr); err != nil {
			log.Warn().Err(err).Msg("sgis: cache store failed")
		}
	}
	return resolved(addr)
}

func (c *Client) reverseGeocode(ctx context.Context, lat, lon float64) (models.AdministrativeAddress, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return models.AdministrativeAddress{}, err
	}

	addr, code, err := c.rgeocode(ctx, token, lat, lon)
	if err == nil || code != errCdInvalidToken {
		return addr, err
	}

	// The cached token was rejected; fetch a fresh one and retry once.
	c.invalidate(token)
	if token, err = c.AccessToken(ctx); err != nil {
		return models.AdministrativeAddress{}, err
	}
	addr, _, err = c.rgeocode(ctx, token, lat, lon)
	return addr, err
}

func (c *Client) rgeocode(ctx context.Context, token string, lat, lon float64) (models.AdministrativeAddress, int, error) {
	q := url.Values{}
	q.Set("accessToken", token)
	q.Set("x_coor", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("y_coor", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("addr_type", addrTypeAdministrative)

	var results []rgeocodeResult
	code, msg, err := c.get(ctx, "rgeocode", "/addr/rgeocodewgs84.json", q, &results)
	if err != nil {
		return models.AdministrativeAddress{}, code, err
	}
	if code != 0 {
		return models.AdministrativeAddress{}, code, &APIError{Code: code, Message: msg}
	}
	if len(results) == 0 {
		return models.AdministrativeAddress{}, code, errors.New("sgis: empty reverse geocode result")
	}

	addr, err := toAddress(results[0])
	return addr, code, err
}

// toAddress maps the first rgeocode row. Missing names are recovered from full_addr,
// missing codes make the row unusable.
func toAddress(r rgeocodeResult) (models.AdministrativeAddress, error) {
	addr := models.AdministrativeAddress{
		ProvinceCode:     strings.TrimSpace(r.SidoCd),
		ProvinceName:     strings.TrimSpace(r.SidoNm),
		CountyCode:       strings.TrimSpace(r.SggCd),
		CountyName:       strings.TrimSpace(r.SggNm),
		NeighborhoodCode: strings.TrimSpace(r.EmdongCd),
		NeighborhoodName: strings.TrimSpace(r.EmdongNm),
	}

	if addr.ProvinceName == "" || addr.CountyName == "" || addr.NeighborhoodName == "" {
		province, county, neighborhood := ParseFullAddress(r.FullAddr)
		if addr.ProvinceName == "" {
			addr.ProvinceName = province
		}
		if addr.CountyName == "" {
			addr.CountyName = county
		}
		if addr.NeighborhoodName == "" {
			addr.NeighborhoodName = neighborhood
		}
	}

	if addr.ProvinceCode == "" || addr.CountyCode == "" || addr.NeighborhoodCode == "" {
		return addr, errors.New("sgis: reverse geocode result is missing administrative codes")
	}
	if addr.ProvinceName == "" || addr.NeighborhoodName == "" {
		return addr, errors.New("sgis: reverse geocode result is missing administrative names")
	}
	return addr, nil
}

// ParseFullAddress splits an SGIS full address into province, county and neighborhood.
// Counties such as "수원시 장안구" span two tokens; everything between the first and the
// last token is treated as the county.
func ParseFullAddress(full string) (province, county, neighborhood string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, out any) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return 0, "", fmt.Errorf("sgis: failed to build request: %w", err)
	}

	t0 := time.Now()
	metrics.SGISRequestsTotal.WithLabelValues(endpoint).Inc()
	defer func() {
		metrics.SGISDurationMs.WithLabelValues(endpoint).Observe(float64(time.Since(t0).Milliseconds()))
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.SGISFailTotal.WithLabelValues(endpoint).Inc()
		return 0, "", fmt.Errorf("sgis: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.SGISFailTotal.WithLabelValues(endpoint).Inc()
		return 0, "", fmt.Errorf("sgis: %s returned status %d", endpoint, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.SGISFailTotal.WithLabelValues(endpoint).Inc()
		return 0, "", fmt.Errorf("sgis: failed to decode %s response: %w", endpoint, err)
	}
	if env.ErrCd != 0 {
		metrics.SGISFailTotal.WithLabelValues(endpoint).Inc()
		return env.ErrCd, env.ErrMsg, nil
	}
	if len(env.Result) > 0 && string(env.Result) != "null" {
		if err := json.Unmarshal(env.Result, out); err != nil {
			metrics.SGISFailTotal.WithLabelValues(endpoint).Inc()
			return 0, "", fmt.Errorf("sgis: malformed %s result: %w", endpoint, err)
		}
	}
	return 0, env.ErrMsg, nil
}
