package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceTypeFromTag(t *testing.T) {
	assert.Equal(t, deviceTypeMix, deviceTypeFromTag("mix"))
	assert.Equal(t, deviceTypeMix, deviceTypeFromTag(" MIX "))
	assert.Equal(t, deviceTypeStorage, deviceTypeFromTag("sph"))
	assert.Equal(t, deviceTypeTLX, deviceTypeFromTag("min"))
	assert.Equal(t, deviceTypeMax, deviceTypeFromTag("max"))
	assert.Equal(t, deviceTypeMic, deviceTypeFromTag("micro"))
	assert.Equal(t, deviceTypeInverter, deviceTypeFromTag("1"))
	assert.Equal(t, deviceTypeUnknown, deviceTypeFromTag("toaster"))
	assert.Equal(t, deviceTypeUnknown, deviceTypeFromTag(""))
}

func TestPowerFrom(t *testing.T) {
	mustPayload := func(body string) payload {
		p, reason := classify([]byte(body))
		require.Empty(t, reason)
		return p
	}

	t.Run("FieldPriority", func(t *testing.T) {
		// pac wins over later fields
		p := mustPayload(`{"obj":{"pac":"1100","power":"9.9"}}`)
		assert.Equal(t, 1.1, powerFrom(p))
	})

	t.Run("SkipsZeroFields", func(t *testing.T) {
		p := mustPayload(`{"obj":{"pac":0,"ppv":2.2}}`)
		assert.Equal(t, 2.2, powerFrom(p))
	})

	t.Run("NothingUsable", func(t *testing.T) {
		p := mustPayload(`{"obj":{"serial":"ABC","pac":"n/a"}}`)
		assert.Equal(t, 0.0, powerFrom(p))
	})
}

func TestLocateReading(t *testing.T) {
	t.Run("TypedEndpointWins", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/newMixApi.do", r.URL.Path)
			assert.Equal(t, "MIX123", r.URL.Query().Get("mixSn"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"obj": map[string]interface{}{"pac": "1100"},
			})
		}))
		defer ts.Close()

		dev := device{serial: "MIX123", tag: "mix", typ: deviceTypeMix}
		r := testGrowatt(ts).locateReading(context.Background(), &session{}, "100", dev)
		assert.Equal(t, 1.1, r.powerKW)
		assert.Equal(t, "mixStatus", r.source)
		assert.Equal(t, confidenceExact, r.conf)
	})

	t.Run("UnknownTypeUsesGenericOnly", func(t *testing.T) {
		var paths []string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if r.URL.Path == "/newTwoDeviceAPI.do" {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"obj": map[string]interface{}{"power": 0.75},
				})
				return
			}
			http.Error(w, "not found", 404)
		}))
		defer ts.Close()

		dev := device{serial: "XYZ", tag: "frobnicator", typ: deviceTypeUnknown}
		r := testGrowatt(ts).locateReading(context.Background(), &session{}, "100", dev)
		assert.Equal(t, 0.75, r.powerKW)
		assert.Equal(t, "deviceInfo", r.source)
		assert.Equal(t, confidenceFallback, r.conf)
		assert.Equal(t, []string{"/newTwoDeviceAPI.do"}, paths)
	})

	t.Run("FallsThroughToGeneric", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/newTlxApi.do":
				w.Write([]byte(`<html>no such page</html>`))
			case "/newTwoDeviceAPI.do":
				json.NewEncoder(w).Encode(map[string]interface{}{
					"obj": map[string]interface{}{"pac": "450"},
				})
			default:
				http.Error(w, "not found", 404)
			}
		}))
		defer ts.Close()

		dev := device{serial: "TLX1", tag: "tlx", typ: deviceTypeTLX}
		r := testGrowatt(ts).locateReading(context.Background(), &session{}, "100", dev)
		assert.Equal(t, 0.45, r.powerKW)
		assert.Equal(t, confidenceFallback, r.conf)
	})

	t.Run("NothingResolvesIsZeroNotError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>down for maintenance</html>`))
		}))
		defer ts.Close()

		dev := device{serial: "S1", tag: "storage", typ: deviceTypeStorage}
		r := testGrowatt(ts).locateReading(context.Background(), &session{}, "100", dev)
		assert.Equal(t, 0.0, r.powerKW)
		assert.Empty(t, r.source)
	})
}
