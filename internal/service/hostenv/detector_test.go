package hostenv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBridge counts ready acknowledgments and serves canned values.
type recordingBridge struct {
	initData   string
	userJSON   string
	readyCalls int
}

func (b *recordingBridge) InitData() string              { return b.initData }
func (b *recordingBridge) UserJSON() string              { return b.userJSON }
func (b *recordingBridge) SignalReady(_ context.Context) { b.readyCalls++ }

// TestDetect_Standalone tests detection without a Telegram host.
func TestDetect_Standalone(t *testing.T) {
	t.Parallel()

	bridge := &recordingBridge{}
	detector := NewDetector(bridge)

	hostContext := detector.Detect(context.Background())
	require.NotNil(t, hostContext)
	assert.False(t, hostContext.IsTelegram)
	assert.Empty(t, hostContext.InitData)
	assert.Nil(t, hostContext.User)

	// Detection is final even without a handover.
	assert.True(t, hostContext.Ready)

	// Standalone hosts never receive a ready acknowledgment.
	assert.Zero(t, bridge.readyCalls)
}

// TestDetect_TelegramHost tests detection with a full handover.
func TestDetect_TelegramHost(t *testing.T) {
	t.Parallel()

	bridge := &recordingBridge{
		initData: "query_id=abc&user=...&hash=deadbeef",
		userJSON: `{"id": 777, "first_name": "Ada", "username": "ada"}`,
	}
	detector := NewDetector(bridge)

	hostContext := detector.Detect(context.Background())
	require.NotNil(t, hostContext)
	assert.True(t, hostContext.IsTelegram)
	assert.True(t, hostContext.Ready)
	assert.Equal(t, "query_id=abc&user=...&hash=deadbeef", hostContext.InitData)

	require.NotNil(t, hostContext.User)
	assert.Equal(t, int64(777), hostContext.User.ID)
	assert.Equal(t, "Ada", hostContext.User.FirstName)
	assert.Equal(t, "ada", hostContext.User.Username)
}

// TestDetect_ReadyAcknowledgedOnce tests that repeated detection neither
// re-probes the bridge nor repeats the ready acknowledgment.
func TestDetect_ReadyAcknowledgedOnce(t *testing.T) {
	t.Parallel()

	bridge := &recordingBridge{initData: "signed-payload"}
	detector := NewDetector(bridge)

	first := detector.Detect(context.Background())

	// Mutating the bridge after the first probe must not change the result.
	bridge.initData = ""

	second := detector.Detect(context.Background())
	assert.Same(t, first, second)
	assert.Equal(t, 1, bridge.readyCalls)
}

// TestDetect_MalformedUserSnapshot tests that a broken user snapshot
// degrades to a Telegram context without user details.
func TestDetect_MalformedUserSnapshot(t *testing.T) {
	t.Parallel()

	bridge := &recordingBridge{
		initData: "signed-payload",
		userJSON: "{not json",
	}
	detector := NewDetector(bridge)

	hostContext := detector.Detect(context.Background())
	assert.True(t, hostContext.IsTelegram)
	assert.Nil(t, hostContext.User)
}

// TestEnvBridge tests the environment-variable handover channel.
func TestEnvBridge(t *testing.T) { //nolint:paralleltest // Mutates process environment.
	t.Setenv(initDataEnvVar, "signed-payload")
	t.Setenv(userEnvVar, `{"id": 1}`)

	bridge := NewEnvBridge()
	assert.Equal(t, "signed-payload", bridge.InitData())
	assert.Equal(t, `{"id": 1}`, bridge.UserJSON())
}
