package monitor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solarsight/solarsight/pkg/common"
	"github.com/solarsight/solarsight/pkg/log"
	"github.com/solarsight/solarsight/pkg/normalize"
	"github.com/solarsight/solarsight/pkg/types"
)

const (
	defaultBaseURL = "https://server.growatt.com"

	loginPathV2 = "newTwoLoginAPI.do"
	loginPathV1 = "newLoginAPI.do"
)

// Run-fatal conditions. Everything below authentication and plant
// listing degrades the affected unit to a zero contribution instead.
var (
	errMissingCredentials   = errors.New("no credentials")
	errAuthRejected         = errors.New("login rejected by every endpoint generation")
	errUpstreamUnreachable  = errors.New("vendor unreachable")
	errPlantListUnavailable = errors.New("plant list unavailable")
)

// Growatt implements the Platform interface for the Growatt monitoring
// cloud. The cloud exposes several unversioned API generations at once,
// none of which is guaranteed to exist or respond consistently for a
// given account, so every capability is served by a cascade of
// endpoint candidates.
type Growatt struct {
	client         *http.Client
	baseURL        string
	runTimeout     time.Duration
	attemptTimeout time.Duration
}

type growattOptions struct {
	baseURL        string
	runTimeout     time.Duration
	attemptTimeout time.Duration
}

func newGrowatt(opts growattOptions) *Growatt {
	if opts.baseURL == "" {
		opts.baseURL = defaultBaseURL
	}
	if opts.runTimeout <= 0 {
		opts.runTimeout = 2 * time.Minute
	}
	if opts.attemptTimeout <= 0 {
		opts.attemptTimeout = 10 * time.Second
	}
	return &Growatt{
		client:         common.HTTPClient(time.Minute),
		baseURL:        opts.baseURL,
		runTimeout:     opts.runTimeout,
		attemptTimeout: opts.attemptTimeout,
	}
}

// session is the state of one authenticated run: the account the vendor
// resolved plus whatever transport state the winning login generation
// handed back. It is immutable after login and shared read-only by the
// concurrent plant and device tasks, so no locking is needed. Sessions
// are not reused across runs; every run re-authenticates.
type session struct {
	userID     string
	token      string
	generation int
	cookies    []*http.Cookie
}

// hashPassword reproduces the digest the vendor requires at login: the
// hex MD5 of the password, with the leading nibble of any byte that
// renders as '0' replaced by 'c'. Legacy vendor algorithm; must match
// bit-for-bit or logins fail with no useful diagnostic.
func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	digest := []byte(hex.EncodeToString(sum[:]))
	for i := 0; i < len(digest); i += 2 {
		if digest[i] == '0' {
			digest[i] = 'c'
		}
	}
	return string(digest)
}

// login performs the handshake, trying generation 2 then generation 1
// with identical credentials. One generation succeeding is sufficient.
// A network-level failure ends the run immediately: "vendor is down" is
// not the same condition as "vendor rejected us" and retrying another
// generation against a dead host only burns the run deadline.
func (g *Growatt) login(ctx context.Context, creds *types.GrowattCredentials) (*session, error) {
	form := url.Values{}
	form.Set("userName", creds.Username)
	form.Set("password", hashPassword(creds.Password))

	cands := []candidate{
		{name: "loginV2", method: http.MethodPost, path: loginPathV2, form: form},
		{name: "loginV1", method: http.MethodPost, path: loginPathV1, form: form},
	}

	for gen, c := range cands {
		attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
		body, cookies, err := g.fetch(attemptCtx, nil, c)
		cancel()
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "vendor unreachable during login",
				slog.String("endpoint", c.name), slog.Any("error", err))
			return nil, fmt.Errorf("%w: %v", errUpstreamUnreachable, err)
		}

		p, reason := classify(body)
		if reason != "" {
			log.Ctx(ctx).DebugContext(ctx, "login response rejected",
				slog.String("endpoint", c.name), slog.String("reason", string(reason)))
			continue
		}
		back := p.container()
		if !back.boolField("success") {
			log.Ctx(ctx).DebugContext(ctx, "login generation rejected credentials",
				slog.String("endpoint", c.name), slog.String("message", back.str("msg")))
			continue
		}

		sess := &session{
			generation: gen,
			cookies:    cookies,
			token:      back.str("token"),
		}
		if user, ok := back.object("user"); ok {
			sess.userID = user.str("id")
		}
		log.Ctx(ctx).DebugContext(ctx, "login success",
			slog.String("endpoint", c.name), slog.String("userID", sess.userID))
		return sess, nil
	}
	return nil, errAuthRejected
}

// fetch performs one HTTP exchange for a candidate. It returns the raw
// body and any cookies the vendor set; the status code is deliberately
// not checked because the vendor returns error pages with HTTP 200 and
// the classifier is the only trustworthy gate.
func (g *Growatt) fetch(ctx context.Context, sess *session, c candidate) ([]byte, []*http.Cookie, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, nil, err
	}
	u.Path, err = url.JoinPath(u.Path, c.path)
	if err != nil {
		return nil, nil, err
	}
	u.RawQuery = c.query.Encode()

	var body io.Reader
	if len(c.form) > 0 {
		body = strings.NewReader(c.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, c.method, u.String(), body)
	if err != nil {
		return nil, nil, err
	}
	if len(c.form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sess != nil {
		if sess.token != "" {
			req.Header.Set("token", sess.token)
		}
		if c.needCookies {
			for _, ck := range sess.cookies {
				req.AddCookie(ck)
			}
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return b, resp.Cookies(), nil
}

// plant is one physical installation as reported by the plant list.
// Energy figures ride along from the list call so they survive even
// when live power resolution fails for the plant.
type plant struct {
	id          string
	name        string
	todayEnergy float64
	totalEnergy float64
}

// listPlants enumerates the account's plants. The modern endpoint takes
// the login token; the legacy one only works with session cookies.
func (g *Growatt) listPlants(ctx context.Context, sess *session) ([]plant, bool) {
	cands := []candidate{
		{
			name:   "plantListV2",
			method: http.MethodPost,
			path:   "newTwoPlantAPI.do",
			query:  url.Values{"op": {"getAllPlantList"}},
		},
		{
			name:        "plantListV1",
			method:      http.MethodGet,
			path:        "PlantListAPI.do",
			query:       url.Values{"userId": {sess.userID}},
			needCookies: true,
		},
	}

	p, src, ok := g.resolve(ctx, sess, cands)
	if !ok {
		return nil, false
	}

	back := p.container()
	rows := back.array("data")
	if rows == nil {
		rows = back.array("datas")
	}
	if rows == nil {
		rows = back.array("plantList")
	}

	var plants []plant
	for _, raw := range rows {
		var row payload
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		pl := plant{
			id:          firstNonEmpty(row.str("plantId"), row.str("id")),
			name:        firstNonEmpty(row.str("plantName"), row.str("name")),
			todayEnergy: normalize.Float(row.scalar("todayEnergy")),
			totalEnergy: normalize.Float(row.scalar("totalEnergy")),
		}
		if pl.todayEnergy == 0 {
			pl.todayEnergy = normalize.Float(row.scalar("eToday"))
		}
		if pl.totalEnergy == 0 {
			pl.totalEnergy = normalize.Float(row.scalar("eTotal"))
		}
		if pl.id == "" {
			continue
		}
		plants = append(plants, pl)
	}
	log.Ctx(ctx).DebugContext(ctx, "plant list resolved",
		slog.String("endpoint", src), slog.Int("plants", len(plants)))
	return plants, true
}

// plantPower looks up a plant-level live power figure. When it resolves
// nonzero it is authoritative and the per-device pass is skipped, which
// both saves requests and avoids double counting.
func (g *Growatt) plantPower(ctx context.Context, sess *session, plantID string) (float64, string) {
	cands := []candidate{
		{
			name:   "plantCenterData",
			method: http.MethodGet,
			path:   "newPlantAPI.do",
			// yes, "Enerty" is how the vendor spells it
			query: url.Values{"action": {"getUserCenterEnertyData"}, "plantId": {plantID}},
		},
		{
			name:        "plantDetail",
			method:      http.MethodGet,
			path:        "PlantDetailAPI.do",
			query:       url.Values{"plantId": {plantID}, "type": {"today"}},
			needCookies: true,
		},
	}

	for _, c := range cands {
		p, ok := g.attempt(ctx, sess, c)
		if !ok {
			if ctx.Err() != nil {
				return 0, ""
			}
			continue
		}
		if kw := powerFrom(p); kw != 0 {
			return kw, c.name
		}
	}
	return 0, ""
}

// listDevices enumerates the inverter devices of a plant.
func (g *Growatt) listDevices(ctx context.Context, sess *session, plantID string) ([]device, bool) {
	cands := []candidate{
		{
			name:   "deviceListV2",
			method: http.MethodGet,
			path:   "newTwoPlantAPI.do",
			query: url.Values{
				"op": {"getAllDeviceList"}, "plantId": {plantID},
				"pageNum": {"1"}, "pageSize": {"100"},
			},
		},
		{
			name:        "deviceListV1",
			method:      http.MethodGet,
			path:        "PlantDetailAPI.do",
			query:       url.Values{"plantId": {plantID}, "type": {"all_device_list"}},
			needCookies: true,
		},
	}

	p, src, ok := g.resolve(ctx, sess, cands)
	if !ok {
		return nil, false
	}

	back := p.container()
	rows := back.array("deviceList")
	if rows == nil {
		rows = back.array("datas")
	}
	if rows == nil {
		rows = back.array("data")
	}

	var devices []device
	for _, raw := range rows {
		var row payload
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		serial := firstNonEmpty(row.str("deviceSn"), row.str("sn"), row.str("serialNum"))
		if serial == "" {
			continue
		}
		tag := firstNonEmpty(row.str("deviceTypeName"), row.str("deviceType"), row.str("type"))
		devices = append(devices, device{
			serial: serial,
			tag:    tag,
			typ:    deviceTypeFromTag(tag),
		})
	}
	log.Ctx(ctx).DebugContext(ctx, "device list resolved",
		slog.String("endpoint", src), slog.String("plantID", plantID), slog.Int("devices", len(devices)))
	return devices, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
