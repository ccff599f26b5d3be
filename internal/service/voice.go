package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

// RequestMeta carries the transport details recorded with each command.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// VoiceService runs canonical commands through the resolver and executor.
// First-party commands additionally update the session and are audited.
type VoiceService struct {
	sessions *SessionService
	resolver *Resolver
	executor *Executor
	activity ActivityLogger
	now      func() time.Time
}

func NewVoiceService(
	sessions *SessionService,
	resolver *Resolver,
	executor *Executor,
	activity ActivityLogger,
) *VoiceService {
	return &VoiceService{
		sessions: sessions,
		resolver: resolver,
		executor: executor,
		activity: activity,
		now:      time.Now,
	}
}

// Execute resolves and runs one command. Resolution and execution failures
// come back as an unsuccessful result; only unexpected failures are
// returned as errors.
func (s *VoiceService) Execute(ctx context.Context, cmd model.Command, scope model.AccessScope) (*model.Result, error) {
	res, err := s.resolver.Resolve(ctx, cmd, scope)
	if err != nil {
		return failedResult(err)
	}

	result, err := s.executor.Execute(ctx, res)
	if err != nil {
		failed, ferr := failedResult(err)
		if failed != nil {
			failed.MatchedDeviceID = res.Device.ID
			failed.MatchedSwitchID = res.Switch.ID
			failed.DeviceName = res.Device.Name
			failed.SwitchName = res.Switch.Name
		}
		return failed, ferr
	}
	return result, nil
}

func failedResult(err error) (*model.Result, error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return nil, err
	}
	switch appErr.Kind() {
	case apperrors.KindResolution, apperrors.KindExecution:
		return &model.Result{
			Success:   false,
			Message:   appErr.Message,
			ErrorKind: string(appErr.Kind()),
			ErrorCode: string(appErr.Code),
		}, nil
	default:
		return nil, err
	}
}

// Submit handles an authenticated first-party command. The session has
// already been validated and rate limited. Exactly one activity record is
// written for every command that reaches execution, successful or not.
func (s *VoiceService) Submit(
	ctx context.Context,
	user *model.User,
	session *model.VoiceSession,
	req model.VoiceCommandRequest,
	meta RequestMeta,
) (*model.Result, error) {
	if strings.TrimSpace(req.Command) == "" && strings.TrimSpace(req.DeviceName) == "" {
		return nil, apperrors.MissingRequired("command")
	}

	session, err := s.sessions.RecordCommand(ctx, session.Token)
	if err != nil {
		return nil, err
	}

	channel := model.ParseChannel(req.Assistant)
	cmd := model.Command{
		RawText:        req.Command,
		DeviceNameHint: req.DeviceName,
		SwitchNameHint: req.SwitchName,
		SourceChannel:  channel,
		ActorUserID:    user.ID,
	}

	log.Info().
		Str("userId", user.ID).
		Str("command", req.Command).
		Str("deviceName", req.DeviceName).
		Str("switchName", req.SwitchName).
		Str("assistant", string(channel)).
		Msg("authenticated voice command")

	result, err := s.Execute(ctx, cmd, user.Scope())
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("voice command failed")
		result = &model.Result{
			Success:   false,
			Message:   "Voice command failed",
			ErrorKind: string(apperrors.KindInternal),
			ErrorCode: string(apperrors.ErrCodeInternal),
		}
	}

	s.record(ctx, user, session, req, channel, result, meta)

	audit.Log(ctx, audit.Event{
		Type:      audit.EventVoiceCommand,
		UserID:    user.ID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Details: map[string]interface{}{
			"assistant": string(channel),
			"success":   result.Success,
			"deviceId":  result.MatchedDeviceID,
			"switchId":  result.MatchedSwitchID,
		},
	})

	if err != nil {
		return nil, apperrors.Internal("Voice command failed")
	}
	return result, nil
}

// record appends the activity entry. Failures are logged and never change
// the command result.
func (s *VoiceService) record(
	ctx context.Context,
	user *model.User,
	session *model.VoiceSession,
	req model.VoiceCommandRequest,
	channel model.Channel,
	result *model.Result,
	meta RequestMeta,
) {
	now := s.now()
	metadata, err := json.Marshal(model.ActivityMetadata{
		Assistant:  channel,
		Command:    req.Command,
		DeviceName: req.DeviceName,
		SwitchName: req.SwitchName,
		Result:     result.Success,
		ErrorKind:  result.ErrorKind,
		SessionInfo: model.ActivitySessionInfo{
			CommandCount: session.CommandCount,
			SessionAge:   now.Sub(session.CreatedAt).Milliseconds(),
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode activity metadata")
		metadata = []byte("{}")
	}
	raw := json.RawMessage(metadata)

	entry := model.ActivityLog{
		ID:          uuid.NewString(),
		Action:      model.ActivityActionVoiceCommand,
		TriggeredBy: model.ActivityTriggeredByAssistant,
		UserID:      user.ID,
		UserName:    user.Name,
		Details:     fmt.Sprintf("Voice command: %q via %s", req.Command, channel),
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
		Metadata:    &raw,
		CreatedAt:   now,
	}
	if result.MatchedDeviceID != "" {
		deviceID := result.MatchedDeviceID
		entry.DeviceID = &deviceID
	}

	if err := s.activity.Append(ctx, entry); err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("failed to write voice activity log")
	}
}
