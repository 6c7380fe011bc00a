package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/solarsight/solarsight/pkg/log"
	"github.com/solarsight/solarsight/pkg/normalize"
)

// deviceType is the closed set of inverter families the telemetry
// locator has strategy sets for. Anything it cannot recognize gets only
// the generic strategies.
type deviceType int

const (
	deviceTypeUnknown deviceType = iota
	deviceTypeMix               // battery-hybrid systems
	deviceTypeStorage           // off-grid battery units
	deviceTypeTLX               // string inverters (MIN/TLX line)
	deviceTypeMax               // large central inverters
	deviceTypeMic               // micro inverters
	deviceTypeInverter          // legacy string inverters
)

// device is one inverter/controller unit belonging to a plant.
type device struct {
	serial string
	tag    string
	typ    deviceType
}

// deviceTypeFromTag maps the free-form type tags the various device
// list generations emit onto the closed family set.
func deviceTypeFromTag(tag string) deviceType {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "mix", "mixed":
		return deviceTypeMix
	case "storage", "sph":
		return deviceTypeStorage
	case "tlx", "tlxh", "min":
		return deviceTypeTLX
	case "max":
		return deviceTypeMax
	case "mic", "mics", "micro":
		return deviceTypeMic
	case "inv", "inverter", "1":
		// "1" is the numeric code the legacy panel list uses
		return deviceTypeInverter
	}
	return deviceTypeUnknown
}

// powerFields are the power-bearing field names seen across the device
// families, probed in order of how often they carry the live value.
var powerFields = []string{
	"pac", "currentPower", "power", "activePower", "outPutPower",
	"ppv", "pPv", "powerValue", "apparentPower",
}

// powerFrom probes an accepted payload for a live power value and
// normalizes it to kW. Zero means the payload carried no usable figure.
func powerFrom(p payload) float64 {
	c := p.container()
	for _, field := range powerFields {
		if v := c.scalar(field); v != nil {
			if kw := normalize.Power(v); kw != 0 {
				return kw
			}
		}
	}
	return 0
}

// confidence says whether a reading came from a device-family-specific
// endpoint or a coarser fallback.
type confidence int

const (
	confidenceFallback confidence = iota
	confidenceExact
)

// telemetryReading is one device's resolved live power. Ephemeral:
// produced, summed into the plant accumulator, discarded.
type telemetryReading struct {
	powerKW float64
	source  string
	conf    confidence
}

// typedCandidates returns the family-specific endpoint candidates for a
// device, two per known family.
func (g *Growatt) typedCandidates(plantID string, dev device) []candidate {
	get := func(name, path string, query url.Values) candidate {
		return candidate{name: name, method: http.MethodGet, path: path, query: query}
	}
	switch dev.typ {
	case deviceTypeMix:
		return []candidate{
			get("mixStatus", "newMixApi.do", url.Values{"op": {"getMixStatusData"}, "mixSn": {dev.serial}, "plantId": {plantID}}),
			get("mixTotal", "newMixApi.do", url.Values{"op": {"getMixTotalData"}, "mixSn": {dev.serial}, "plantId": {plantID}}),
		}
	case deviceTypeStorage:
		return []candidate{
			get("storageStatus", "newStorageAPI.do", url.Values{"op": {"getStorageStatusData"}, "storageSn": {dev.serial}}),
			get("storageTotal", "newStorageAPI.do", url.Values{"op": {"getStorageTotalData"}, "storageSn": {dev.serial}}),
		}
	case deviceTypeTLX:
		return []candidate{
			get("tlxStatus", "newTlxApi.do", url.Values{"op": {"getTlxStatusData"}, "tlxSn": {dev.serial}}),
			get("tlxDetail", "newTlxApi.do", url.Values{"op": {"getTlxDetailData"}, "tlxSn": {dev.serial}}),
		}
	case deviceTypeMax:
		return []candidate{
			get("maxStatus", "newMaxApi.do", url.Values{"op": {"getMaxStatusData"}, "maxSn": {dev.serial}}),
			get("maxDetail", "newMaxApi.do", url.Values{"op": {"getMaxDetailData"}, "maxSn": {dev.serial}}),
		}
	case deviceTypeMic:
		return []candidate{
			get("micStatus", "newMicApi.do", url.Values{"op": {"getMicStatusData"}, "micSn": {dev.serial}}),
			get("micDetail", "newMicApi.do", url.Values{"op": {"getMicDetailData"}, "micSn": {dev.serial}}),
		}
	case deviceTypeInverter:
		return []candidate{
			get("inverterStatus", "newInverterAPI.do", url.Values{"op": {"getInverterStatusData"}, "inverterId": {dev.serial}}),
			get("inverterDetail", "newInverterAPI.do", url.Values{"op": {"getInverterDetailData"}, "inverterId": {dev.serial}}),
		}
	}
	return nil
}

// genericCandidates are the type-agnostic fallbacks every device gets
// after its family strategies are exhausted.
func (g *Growatt) genericCandidates(plantID string, dev device) []candidate {
	return []candidate{
		{
			name:   "deviceInfo",
			method: http.MethodGet,
			path:   "newTwoDeviceAPI.do",
			query:  url.Values{"op": {"getDeviceInfo"}, "deviceSn": {dev.serial}, "plantId": {plantID}},
		},
		{
			name:        "deviceData",
			method:      http.MethodGet,
			path:        "newInverterAPI.do",
			query:       url.Values{"op": {"getInverterData"}, "id": {dev.serial}},
			needCookies: true,
		},
	}
}

// locateReading obtains a live power reading for one device. It never
// fails: family-specific endpoints are tried first, then the generic
// ones, and the first nonzero normalized value wins. A device that
// resolves nothing contributes a zero reading, never an error.
func (g *Growatt) locateReading(ctx context.Context, sess *session, plantID string, dev device) telemetryReading {
	for _, c := range g.typedCandidates(plantID, dev) {
		if p, ok := g.attempt(ctx, sess, c); ok {
			if kw := powerFrom(p); kw != 0 {
				return telemetryReading{powerKW: kw, source: c.name, conf: confidenceExact}
			}
		}
		if ctx.Err() != nil {
			return telemetryReading{}
		}
	}
	for _, c := range g.genericCandidates(plantID, dev) {
		if p, ok := g.attempt(ctx, sess, c); ok {
			if kw := powerFrom(p); kw != 0 {
				return telemetryReading{powerKW: kw, source: c.name, conf: confidenceFallback}
			}
		}
		if ctx.Err() != nil {
			return telemetryReading{}
		}
	}
	log.Ctx(ctx).DebugContext(ctx, "no telemetry for device",
		slog.String("serial", dev.serial), slog.String("tag", dev.tag))
	return telemetryReading{}
}
