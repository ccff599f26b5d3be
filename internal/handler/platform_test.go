package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovolt/voice-bridge-go/internal/inventory"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

// failingCatalog reports a storage error for one device id.
type failingCatalog struct {
	*inventory.Inventory
	failID string
}

func (c *failingCatalog) FindByID(ctx context.Context, id string, scope model.AccessScope) (*model.Device, error) {
	if id == c.failID {
		return nil, errors.New("connection reset")
	}
	return c.Inventory.FindByID(ctx, id, scope)
}

func TestPlatformHandler_Google(t *testing.T) {
	path := APIPrefix + "/google/action"

	t.Run("sync lists every switch", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path,
			`{"requestId":"req-1","inputs":[{"intent":"action.devices.SYNC"}]}`, requestOpts{})
		require.Equal(t, http.StatusOK, rec.Code)

		out := decodeMap(t, rec)
		assert.Equal(t, "req-1", out["requestId"])
		payload := out["payload"].(map[string]any)
		assert.Equal(t, "autovolt", payload["agentUserId"])
		assert.Len(t, payload["devices"], 4)
	})

	t.Run("execute reports per device status", func(t *testing.T) {
		env := newTestEnv(t, 10)
		body := `{"requestId":"req-2","inputs":[{"intent":"action.devices.EXECUTE","payload":{"commands":[
			{"devices":[{"id":"dev-lab_sw1"},{"id":"dev-hall_sw1"},{"id":"dev-none_sw1"}],
			 "execution":[{"command":"action.devices.commands.OnOff","params":{"on":true}}]}]}}]}`
		rec := env.do(t, http.MethodPost, path, body, requestOpts{})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		commands := decodeMap(t, rec)["payload"].(map[string]any)["commands"].([]any)
		require.Len(t, commands, 3)
		assert.Equal(t, "SUCCESS", commands[0].(map[string]any)["status"])
		assert.Equal(t, "OFFLINE", commands[1].(map[string]any)["status"])
		assert.Equal(t, "deviceNotFound", commands[2].(map[string]any)["errorCode"])

		state, _ := env.inv.ReadSwitchState(context.Background(), "dev-lab", "sw1")
		assert.True(t, state)
		assert.Equal(t, 0, env.activity.count())
	})

	t.Run("malformed body keeps the channel schema", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path, `not json`, requestOpts{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		out := decodeMap(t, rec)
		assert.Equal(t, "unknown", out["requestId"])
		assert.Equal(t, "protocolError", out["payload"].(map[string]any)["errorCode"])
	})

	t.Run("a failing device keeps the other outcomes", func(t *testing.T) {
		inv := inventory.New(testDevices())
		env := newTestEnvWith(t, 10, inv, &failingCatalog{Inventory: inv, failID: "dev-hall"})
		body := `{"requestId":"req-4","inputs":[{"intent":"action.devices.EXECUTE","payload":{"commands":[
			{"devices":[{"id":"dev-lab_sw1"},{"id":"dev-hall_sw1"}],
			 "execution":[{"command":"action.devices.commands.OnOff","params":{"on":true}}]}]}}]}`
		rec := env.do(t, http.MethodPost, path, body, requestOpts{})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		commands := decodeMap(t, rec)["payload"].(map[string]any)["commands"].([]any)
		require.Len(t, commands, 2)
		assert.Equal(t, "SUCCESS", commands[0].(map[string]any)["status"])
		assert.Equal(t, "hardError", commands[1].(map[string]any)["errorCode"])

		state, _ := inv.ReadSwitchState(context.Background(), "dev-lab", "sw1")
		assert.True(t, state)
	})

	t.Run("every device failing is a request error", func(t *testing.T) {
		inv := inventory.New(testDevices())
		env := newTestEnvWith(t, 10, inv, &failingCatalog{Inventory: inv, failID: "dev-hall"})
		body := `{"requestId":"req-5","inputs":[{"intent":"action.devices.EXECUTE","payload":{"commands":[
			{"devices":[{"id":"dev-hall_sw1"}],
			 "execution":[{"command":"action.devices.commands.OnOff","params":{"on":true}}]}]}}]}`
		rec := env.do(t, http.MethodPost, path, body, requestOpts{})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "req-5", decodeMap(t, rec)["requestId"])
	})

	t.Run("disconnect", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path,
			`{"requestId":"req-3","inputs":[{"intent":"action.devices.DISCONNECT"}]}`, requestOpts{})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{}`, rec.Body.String())
	})
}

func TestPlatformHandler_Alexa(t *testing.T) {
	path := APIPrefix + "/alexa/smart-home"

	directive := func(namespace, name, endpointID string) string {
		return `{"directive":{"header":{"namespace":"` + namespace + `","name":"` + name +
			`","messageId":"msg-1","correlationToken":"corr-1","payloadVersion":"3"},` +
			`"endpoint":{"endpointId":"` + endpointID + `"},"payload":{}}}`
	}

	t.Run("turn off", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path, directive("Alexa.PowerController", "TurnOff", "dev-lab_sw2"), requestOpts{})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		event := decodeMap(t, rec)["event"].(map[string]any)
		header := event["header"].(map[string]any)
		assert.Equal(t, "Response", header["name"])
		assert.Equal(t, "corr-1", header["correlationToken"])
	})

	t.Run("unknown endpoint echoes ids", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path, directive("Alexa.PowerController", "TurnOn", "dev-none_sw1"), requestOpts{})
		require.Equal(t, http.StatusOK, rec.Code)

		event := decodeMap(t, rec)["event"].(map[string]any)
		header := event["header"].(map[string]any)
		assert.Equal(t, "ErrorResponse", header["name"])
		assert.Equal(t, "msg-1", header["messageId"])
		assert.Equal(t, "corr-1", header["correlationToken"])
		assert.Equal(t, "dev-none_sw1", event["endpoint"].(map[string]any)["endpointId"])
		assert.Equal(t, "NO_SUCH_ENDPOINT", event["payload"].(map[string]any)["type"])
	})

	t.Run("account linking is not supported", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path, directive("Alexa.Authorization", "AcceptGrant", ""), requestOpts{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		event := decodeMap(t, rec)["event"].(map[string]any)
		assert.Equal(t, "INVALID_DIRECTIVE", event["payload"].(map[string]any)["type"])
	})
}

func TestPlatformHandler_Siri(t *testing.T) {
	path := APIPrefix + "/siri/webhook"

	t.Run("unsigned request is rejected", func(t *testing.T) {
		env := newTestEnv(t, 10)
		rec := env.do(t, http.MethodPost, path, `{"intent":"discover"}`, requestOpts{})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, false, decodeMap(t, rec)["success"])
	})

	t.Run("discover", func(t *testing.T) {
		env := newTestEnv(t, 10)
		body := `{"intent":"discover"}`
		rec := env.do(t, http.MethodPost, path, body, requestOpts{headers: signSiri(body)})
		require.Equal(t, http.StatusOK, rec.Code)

		out := decodeMap(t, rec)
		assert.Equal(t, true, out["success"])
		assert.Len(t, out["devices"], 3)
	})

	t.Run("control by switch name", func(t *testing.T) {
		env := newTestEnv(t, 10)
		body := `{"intent":"control","deviceId":"dev-lab","command":"turn on","parameters":{"switchName":"fan"}}`
		rec := env.do(t, http.MethodPost, path, body, requestOpts{headers: signSiri(body)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		out := decodeMap(t, rec)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "sw2", out["result"].(map[string]any)["matchedSwitchId"])
	})

	t.Run("ambiguous switch is a schema-conformant failure", func(t *testing.T) {
		env := newTestEnv(t, 10)
		body := `{"intent":"control","deviceId":"dev-lab","command":"turn on"}`
		rec := env.do(t, http.MethodPost, path, body, requestOpts{headers: signSiri(body)})
		require.Equal(t, http.StatusOK, rec.Code)

		out := decodeMap(t, rec)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "AMBIGUOUS_SWITCH", out["code"])
		assert.NotEmpty(t, out["error"])
	})
}
