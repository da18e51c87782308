package hostenv

//go:generate $MOCKGEN -source=detector.go -destination=mocks/detector_mock.go

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/artfusion-app/artfusion-cli/internal/logger"
)

const (
	// initDataEnvVar carries the signed Mini App init data from the wrapper.
	initDataEnvVar = "ARTFUSION_TG_INIT_DATA"
	// userEnvVar carries the unverified Telegram user snapshot as JSON.
	userEnvVar = "ARTFUSION_TG_USER"
)

// TelegramUser is the unverified user snapshot supplied by the Telegram
// host. It is display-only; the signed init data is what the backend
// actually validates.
type TelegramUser struct {
	// ID is the Telegram user identifier.
	ID int64 `json:"id"`
	// FirstName is the user's first name.
	FirstName string `json:"first_name"`
	// LastName is the user's last name, if set.
	LastName string `json:"last_name,omitempty"`
	// Username is the user's @username, if set.
	Username string `json:"username,omitempty"`
	// PhotoURL points at the user's Telegram avatar.
	PhotoURL string `json:"photo_url,omitempty"`
}

// HostContext describes the detected hosting environment.
type HostContext struct {
	// IsTelegram reports whether the client runs inside a Telegram Mini App host.
	IsTelegram bool
	// InitData is the signed init data payload, empty outside Telegram.
	InitData string
	// User is the unverified user snapshot, nil outside Telegram.
	User *TelegramUser
	// Ready reports that detection has completed and the context is
	// final. A missing handover is terminal: no late Telegram handover
	// can appear once the probe has run.
	Ready bool
}

// Bridge abstracts the host handover channel so tests can substitute it.
type Bridge interface {
	// InitData returns the raw signed init data, empty when absent.
	InitData() string
	// UserJSON returns the raw user snapshot JSON, empty when absent.
	UserJSON() string
	// SignalReady tells the host the client finished booting.
	SignalReady(ctx context.Context)
}

// EnvBridge reads the handover values from environment variables.
type EnvBridge struct{}

// NewEnvBridge creates a bridge over the process environment.
func NewEnvBridge() *EnvBridge {
	return &EnvBridge{}
}

// InitData returns the signed init data from the environment.
func (b *EnvBridge) InitData() string {
	return os.Getenv(initDataEnvVar)
}

// UserJSON returns the user snapshot JSON from the environment.
func (b *EnvBridge) UserJSON() string {
	return os.Getenv(userEnvVar)
}

// SignalReady acknowledges the host handover. The environment bridge has
// no back channel, so the acknowledgment is informational only.
func (b *EnvBridge) SignalReady(ctx context.Context) {
	logger.Debug(ctx, "Host environment ready acknowledgment sent")
}

// Detector resolves the hosting environment.
type Detector interface {
	// Detect returns the cached host context, probing the bridge on first call.
	Detect(ctx context.Context) *HostContext
}

// DetectorImpl implements Detector over a Bridge.
type DetectorImpl struct {
	bridge Bridge

	detectOnce sync.Once
	cached     *HostContext
}

// NewDetector creates a detector over the given bridge.
func NewDetector(bridge Bridge) *DetectorImpl {
	return &DetectorImpl{bridge: bridge}
}

// Detect probes the bridge once and caches the result. The ready
// acknowledgment is sent exactly once, and only when a Telegram host is
// actually present.
func (d *DetectorImpl) Detect(ctx context.Context) *HostContext {
	d.detectOnce.Do(func() {
		initData := d.bridge.InitData()
		if initData == "" {
			logger.Debug(ctx, "No Telegram host detected, running standalone")

			d.cached = &HostContext{Ready: true}

			return
		}

		hostContext := &HostContext{
			IsTelegram: true,
			InitData:   initData,
			Ready:      true,
		}

		if rawUser := d.bridge.UserJSON(); rawUser != "" {
			var user TelegramUser
			if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
				logger.Debugf(ctx, "Failed to parse Telegram user snapshot: %v", err)
			} else {
				hostContext.User = &user
			}
		}

		d.bridge.SignalReady(ctx)

		logger.Debug(ctx, "Telegram Mini App host detected")

		d.cached = hostContext
	})

	return d.cached
}
