package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/autovolt/voice-bridge-go/internal/inventory"
	"github.com/autovolt/voice-bridge-go/internal/middleware"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/platform"
	"github.com/autovolt/voice-bridge-go/internal/service"
	"github.com/autovolt/voice-bridge-go/internal/store"
	"github.com/autovolt/voice-bridge-go/internal/util"
)

const (
	testJWTSecret  = "handler-test-secret-that-is-long-enough"
	testSiriSecret = "siri-secret"
)

type recordingActivity struct {
	mu      sync.Mutex
	entries []model.ActivityLog
}

func (a *recordingActivity) Append(_ context.Context, entry model.ActivityLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordingActivity) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

type testEnv struct {
	router   chi.Router
	sessions *service.SessionService
	inv      *inventory.Inventory
	activity *recordingActivity
}

func testDevices() []model.Device {
	return []model.Device{
		{
			ID: "dev-proj", Name: "Projector", Location: "Block A", Classroom: "A101", Online: true,
			Switches: []model.Switch{{ID: "sw1", Name: "Main", Type: model.SwitchTypeProjector}},
		},
		{
			ID: "dev-lab", Name: "Lab B201", Location: "Block B", Classroom: "B201", Online: true,
			Switches: []model.Switch{
				{ID: "sw1", Name: "Light", Type: model.SwitchTypeLight},
				{ID: "sw2", Name: "Fan", Type: model.SwitchTypeFan},
			},
		},
		{
			ID: "dev-hall", Name: "Seminar Hall", Classroom: "H1", Online: false,
			Switches: []model.Switch{{ID: "sw1", Name: "AC", Type: model.SwitchTypeAC}},
		},
	}
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()
	inv := inventory.New(testDevices())
	return newTestEnvWith(t, rateLimit, inv, inv)
}

// newTestEnvWith lets a test put a different catalog in front of the
// inventory that owns switch state.
func newTestEnvWith(t *testing.T, rateLimit int, inv *inventory.Inventory, devices service.DeviceInventory) *testEnv {
	t.Helper()

	sessions := service.NewSessionService(store.NewMemorySessionStore(), time.Hour)
	limiter := service.NewRateLimiter(store.NewMemoryWindowStore(), rateLimit, 15*time.Minute)
	activity := &recordingActivity{}

	voice := service.NewVoiceService(sessions, service.NewResolver(devices), service.NewExecutor(inv), activity)

	google := platform.NewGoogleAdapter(platform.GoogleConfig{AgentUserID: "autovolt", Manufacturer: "AutoVolt IoT"})
	alexa := platform.NewAlexaAdapter(platform.AlexaConfig{Manufacturer: "AutoVolt IoT"})
	siri := platform.NewSiriAdapter()
	discovery := service.NewDiscoveryService(devices, google, alexa, siri)

	router := NewRouter(RouterDeps{
		Identity:        middleware.NewIdentityMiddleware(testJWTSecret),
		VoiceSession:    middleware.NewVoiceSessionMiddleware(sessions),
		RateLimit:       middleware.NewRateLimitMiddleware(limiter),
		Signature:       middleware.NewSignatureMiddleware(testSiriSecret),
		SecurityHeaders: middleware.NewSecurityHeadersMiddleware(false),
		Sessions:        sessions,
		Voice:           voice,
		Discovery:       discovery,
		Google:          google,
		Alexa:           alexa,
		Siri:            siri,
	})

	return &testEnv{router: router, sessions: sessions, inv: inv, activity: activity}
}

func identityToken(t *testing.T, user *model.User) string {
	t.Helper()
	claims := middleware.IdentityClaims{
		Name:          user.Name,
		Role:          user.Role,
		VoiceControl:  user.VoiceControl,
		AssignedRooms: user.AssignedRooms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

type requestOpts struct {
	user       *model.User
	voiceToken string
	headers    map[string]string
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if opts.user != nil {
		req.Header.Set("Authorization", "Bearer "+identityToken(t, opts.user))
	}
	if opts.voiceToken != "" {
		req.Header.Set(middleware.VoiceTokenHeader, opts.voiceToken)
	}
	for k, v := range opts.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T, user *model.User) string {
	t.Helper()
	created, err := e.sessions.CreateSession(context.Background(), user)
	require.NoError(t, err)
	return created.Token
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := decodeMap(t, rec)
	require.Equal(t, true, out["success"], rec.Body.String())
	data, ok := out["data"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return data
}

func signSiri(body string) map[string]string {
	return map[string]string{middleware.WebhookSignatureHeader: util.HmacSHA256(testSiriSecret, body)}
}

var (
	adminUser   = &model.User{ID: "admin-1", Name: "Admin", Role: model.RoleAdmin}
	facultyUser = &model.User{ID: "fac-1", Name: "Faculty", Role: "faculty", AssignedRooms: []string{"B201"}}
	studentUser = &model.User{ID: "stu-1", Name: "Student", Role: model.RoleStudent}
)
