package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solarsight/solarsight/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrowatt(ts *httptest.Server) *Growatt {
	return &Growatt{
		client:         ts.Client(),
		baseURL:        ts.URL,
		runTimeout:     time.Minute,
		attemptTimeout: 5 * time.Second,
	}
}

func TestHashPassword(t *testing.T) {
	// digests with no zero in a leading nibble pass through untouched
	assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", hashPassword("password"))
	// zeros in leading nibbles become 'c'
	assert.Equal(t, "eee364414cda80eaea64c9fed6c2ca88", hashPassword("growatt2020"))
	assert.Equal(t, "2ab96390c7dbe3439de74dcc9bcb1767", hashPassword("hunter2"))
}

func TestLogin(t *testing.T) {
	creds := &types.GrowattCredentials{Username: "user@example.com", Password: "hunter2"}

	t.Run("ModernGeneration", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/"+loginPathV2 {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "user@example.com", r.Form.Get("userName"))
				// the digest, never the raw password
				assert.Equal(t, hashPassword("hunter2"), r.Form.Get("password"))

				json.NewEncoder(w).Encode(map[string]interface{}{
					"back": map[string]interface{}{
						"success": true,
						"token":   "tok-123",
						"user":    map[string]interface{}{"id": 42},
					},
				})
				return
			}
			http.Error(w, "not found", 404)
		}))
		defer ts.Close()

		sess, err := testGrowatt(ts).login(context.Background(), creds)
		require.NoError(t, err)
		assert.Equal(t, "42", sess.userID)
		assert.Equal(t, "tok-123", sess.token)
		assert.Equal(t, 0, sess.generation)
	})

	t.Run("FallsBackToLegacy", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/" + loginPathV2:
				// modern endpoint serves its error page with HTTP 200
				w.Write([]byte(`<html>server busy</html>`))
			case "/" + loginPathV1:
				json.NewEncoder(w).Encode(map[string]interface{}{
					"back": map[string]interface{}{
						"success": true,
						"user":    map[string]interface{}{"id": "7"},
					},
				})
			default:
				http.Error(w, "not found", 404)
			}
		}))
		defer ts.Close()

		sess, err := testGrowatt(ts).login(context.Background(), creds)
		require.NoError(t, err)
		assert.Equal(t, "7", sess.userID)
		assert.Equal(t, 1, sess.generation)
	})

	t.Run("AllGenerationsReject", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"back": map[string]interface{}{"success": false, "msg": "501"},
			})
		}))
		defer ts.Close()

		_, err := testGrowatt(ts).login(context.Background(), creds)
		assert.ErrorIs(t, err, errAuthRejected)
	})

	t.Run("Unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		ts.Close()

		_, err := testGrowatt(ts).login(context.Background(), creds)
		assert.ErrorIs(t, err, errUpstreamUnreachable)
	})
}

func TestListPlants(t *testing.T) {
	t.Run("ModernList", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/newTwoPlantAPI.do", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"back": map[string]interface{}{
					"success": true,
					"data": []map[string]interface{}{
						{"plantId": "100", "plantName": "Home", "todayEnergy": "12.5", "totalEnergy": "9000.1"},
						{"plantId": 101, "plantName": "Barn", "eToday": 3.0, "eTotal": 450.0},
						{"plantName": "no id, dropped"},
					},
				},
			})
		}))
		defer ts.Close()

		plants, ok := testGrowatt(ts).listPlants(context.Background(), &session{})
		require.True(t, ok)
		require.Len(t, plants, 2)
		assert.Equal(t, plant{id: "100", name: "Home", todayEnergy: 12.5, totalEnergy: 9000.1}, plants[0])
		assert.Equal(t, plant{id: "101", name: "Barn", todayEnergy: 3.0, totalEnergy: 450.0}, plants[1])
	})

	t.Run("LegacyFallbackWithCookies", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/newTwoPlantAPI.do":
				w.Write([]byte(`<html>gone</html>`))
			case "/PlantListAPI.do":
				ck, err := r.Cookie("JSESSIONID")
				require.NoError(t, err)
				assert.Equal(t, "abc", ck.Value)
				assert.Equal(t, "9", r.URL.Query().Get("userId"))
				json.NewEncoder(w).Encode(map[string]interface{}{
					"back": map[string]interface{}{
						"success": true,
						"data":    []map[string]interface{}{{"plantId": "1", "plantName": "Legacy"}},
					},
				})
			default:
				http.Error(w, "not found", 404)
			}
		}))
		defer ts.Close()

		sess := &session{
			userID:  "9",
			cookies: []*http.Cookie{{Name: "JSESSIONID", Value: "abc"}},
		}
		plants, ok := testGrowatt(ts).listPlants(context.Background(), sess)
		require.True(t, ok)
		require.Len(t, plants, 1)
		assert.Equal(t, "Legacy", plants[0].name)
	})

	t.Run("Exhausted", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>down</html>`))
		}))
		defer ts.Close()

		plants, ok := testGrowatt(ts).listPlants(context.Background(), &session{})
		assert.False(t, ok)
		assert.Nil(t, plants)
	})
}

func TestPlantPower(t *testing.T) {
	t.Run("WattsNormalized", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/newPlantAPI.do", r.URL.Path)
			assert.Equal(t, "getUserCenterEnertyData", r.URL.Query().Get("action"))
			// watts, as the center endpoint reports them
			json.NewEncoder(w).Encode(map[string]interface{}{"powerValue": "3200"})
		}))
		defer ts.Close()

		kw, src := testGrowatt(ts).plantPower(context.Background(), &session{}, "100")
		assert.Equal(t, 3.2, kw)
		assert.Equal(t, "plantCenterData", src)
	})

	t.Run("ZeroFallsThrough", func(t *testing.T) {
		var detailCalled bool
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/newPlantAPI.do":
				json.NewEncoder(w).Encode(map[string]interface{}{"powerValue": 0})
			case "/PlantDetailAPI.do":
				detailCalled = true
				json.NewEncoder(w).Encode(map[string]interface{}{
					"back": map[string]interface{}{"success": true, "pac": "2.5"},
				})
			default:
				http.Error(w, "not found", 404)
			}
		}))
		defer ts.Close()

		kw, src := testGrowatt(ts).plantPower(context.Background(), &session{}, "100")
		assert.True(t, detailCalled)
		assert.Equal(t, 2.5, kw)
		assert.Equal(t, "plantDetail", src)
	})
}

func TestListDevices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/newTwoPlantAPI.do", r.URL.Path)
		assert.Equal(t, "getAllDeviceList", r.URL.Query().Get("op"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"back": map[string]interface{}{
				"success": true,
				"deviceList": []map[string]interface{}{
					{"deviceSn": "MIX123", "deviceTypeName": "mix"},
					{"sn": "TLX456", "deviceType": "tlx"},
					{"serialNum": "XYZ789", "type": "frobnicator"},
					{"deviceTypeName": "no serial, dropped"},
				},
			},
		})
	}))
	defer ts.Close()

	devices, ok := testGrowatt(ts).listDevices(context.Background(), &session{}, "100")
	require.True(t, ok)
	require.Len(t, devices, 3)
	assert.Equal(t, device{serial: "MIX123", tag: "mix", typ: deviceTypeMix}, devices[0])
	assert.Equal(t, device{serial: "TLX456", tag: "tlx", typ: deviceTypeTLX}, devices[1])
	assert.Equal(t, device{serial: "XYZ789", tag: "frobnicator", typ: deviceTypeUnknown}, devices[2])
}
