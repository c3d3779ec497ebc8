package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"tdclient/internal/config"
	"tdclient/internal/td"
)

var (
	ErrSessionClosed = errors.New("telegram: session closed")
	ErrInput         = errors.New("telegram: input provider failed")
)

// ClosedError carries the event that reported authorizationStateClosed.
// A closed session cannot be resumed; build a new engine and session.
type ClosedError struct {
	Event *td.Event
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("telegram: session closed by engine: %s", e.Event.Raw)
}

func (e *ClosedError) Unwrap() error { return ErrSessionClosed }

type sender interface {
	Send(req td.Request) error
}

// Authorizer answers the engine's authorization phases. It never decides the
// next phase itself; it only reacts to what the engine reports.
type Authorizer struct {
	cfg    *config.Config
	out    sender
	input  InputProvider
	logger *zap.Logger

	phase      td.Phase
	seen       bool
	authorized atomic.Bool

	// sent counts requests; the latest one's tag is lastExtra.
	sent      int
	lastExtra string
}

func NewAuthorizer(cfg *config.Config, out sender, input InputProvider, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{
		cfg:    cfg,
		out:    out,
		input:  input,
		logger: logger,
	}
}

func (a *Authorizer) Authorized() bool { return a.authorized.Load() }

// Phase returns the last phase the engine reported.
func (a *Authorizer) Phase() td.Phase { return a.phase }

// Handle consumes one event. Events that carry no authorization state are
// ignored, and so is a repeat of the phase already being handled.
func (a *Authorizer) Handle(ctx context.Context, ev *td.Event) error {
	phase, ok := ev.AuthorizationPhase()
	if !ok {
		return nil
	}
	if a.seen && phase == a.phase {
		a.logger.Debug("authorization phase repeated", zap.Stringer("phase", phase))
		return nil
	}
	a.phase, a.seen = phase, true
	a.logger.Debug("authorization phase", zap.Stringer("phase", phase))

	switch phase {
	case td.PhaseClosed:
		a.logger.Error("authorization closed", zap.ByteString("event", ev.Raw))
		return &ClosedError{Event: ev}

	case td.PhaseWaitParameters:
		if err := a.send(a.parameters()); err != nil {
			return err
		}
		a.logger.Debug("tdlib parameters sent")
		return nil

	case td.PhaseWaitEncryptionKey:
		return a.send(td.NewRequest(td.TypeCheckDatabaseEncryptionKey, map[string]any{
			"encryption_key": "",
		}))

	case td.PhaseWaitPhoneNumber, td.PhaseWaitCode, td.PhaseWaitRegistration,
		td.PhaseWaitPassword, td.PhaseWaitEmailAddress, td.PhaseWaitEmailCode:
		return a.answer(ctx, phase)

	case td.PhaseReady:
		if a.authorized.Swap(true) {
			return nil
		}
		a.logger.Info("user authorized")
		return a.send(td.NewRequest(td.TypeGetChats, map[string]any{
			"limit": a.cfg.ChatListLimit,
		}))

	case td.PhaseClosing:
		a.logger.Info("authorization closing")
		return nil

	case td.PhaseUnknown:
		a.logger.Warn("unhandled authorization state", zap.ByteString("event", ev.Raw))
		return nil
	}
	return nil
}

// HandleError re-prompts for the current interactive phase after the engine
// rejected an answer, when RepromptOnAuthError is set. Only errors tagged
// with the last authorization request's @extra count.
func (a *Authorizer) HandleError(ctx context.Context, ev *td.Event) error {
	if !a.cfg.RepromptOnAuthError || a.Authorized() || !a.phase.Interactive() {
		return nil
	}
	if a.lastExtra == "" || ev.Extra() != a.lastExtra {
		return nil
	}
	code, msg, _ := ev.ErrorInfo()
	a.logger.Warn("authorization answer rejected",
		zap.Stringer("phase", a.phase), zap.Int("code", code), zap.String("message", msg))
	return a.answer(ctx, a.phase)
}

func (a *Authorizer) answer(ctx context.Context, phase td.Phase) error {
	req, err := a.prompt(ctx, phase)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Interrupted while prompting: the answer must not reach the engine.
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInput, phase, err)
	}
	return a.send(req)
}

func (a *Authorizer) prompt(ctx context.Context, phase td.Phase) (td.Request, error) {
	switch phase {
	case td.PhaseWaitPhoneNumber:
		phone, err := a.input.PhoneNumber(ctx)
		if err != nil {
			return td.Request{}, err
		}
		a.logger.Debug("phone number entered", zap.String("phone_number", phone))
		return td.NewRequest(td.TypeSetAuthenticationPhoneNumber, map[string]any{
			"phone_number": phone,
		}), nil

	case td.PhaseWaitCode:
		code, err := a.input.Code(ctx)
		if err != nil {
			return td.Request{}, err
		}
		return td.NewRequest(td.TypeCheckAuthenticationCode, map[string]any{
			"code": code,
		}), nil

	case td.PhaseWaitRegistration:
		first, last, err := a.input.FirstAndLastName(ctx)
		if err != nil {
			return td.Request{}, err
		}
		return td.NewRequest(td.TypeRegisterUser, map[string]any{
			"first_name": first,
			"last_name":  last,
		}), nil

	case td.PhaseWaitPassword:
		// The engine takes the password as plain text.
		password, err := a.input.Password(ctx)
		if err != nil {
			return td.Request{}, err
		}
		return td.NewRequest(td.TypeCheckAuthenticationPassword, map[string]any{
			"password": password,
		}), nil

	case td.PhaseWaitEmailAddress:
		email, err := a.input.EmailAddress(ctx)
		if err != nil {
			return td.Request{}, err
		}
		return td.NewRequest(td.TypeSetAuthenticationEmailAddress, map[string]any{
			"email_address": email,
		}), nil

	case td.PhaseWaitEmailCode:
		code, err := a.input.EmailCode(ctx)
		if err != nil {
			return td.Request{}, err
		}
		return td.NewRequest(td.TypeCheckAuthenticationEmailCode, map[string]any{
			"code": map[string]any{
				"@type": "emailAddressAuthenticationCode",
				"code":  code,
			},
		}), nil
	}
	return td.Request{}, fmt.Errorf("phase %s takes no input", phase)
}

func (a *Authorizer) parameters() td.Request {
	c := a.cfg
	return td.NewRequest(td.TypeSetTdlibParameters, map[string]any{
		"parameters": map[string]any{
			"use_test_dc":              c.UseTestDC,
			"database_directory":       c.DatabaseDirectory,
			"use_file_database":        c.UseFileDatabase,
			"use_chat_info_database":   c.UseChatInfoDatabase,
			"use_message_database":     c.UseMessageDatabase,
			"use_secret_chats":         c.UseSecretChats,
			"api_id":                   c.APIID,
			"api_hash":                 c.APIHash,
			"system_language_code":     c.SystemLanguage,
			"device_model":             c.DeviceModel,
			"application_version":      c.ApplicationVersion,
			"enable_storage_optimizer": c.EnableStorageOptimizer,
		},
	})
}

func (a *Authorizer) send(req td.Request) error {
	a.sent++
	extra := fmt.Sprintf("auth:%d", a.sent)
	fields := make(map[string]any, len(req.Fields)+1)
	for k, v := range req.Fields {
		fields[k] = v
	}
	fields[td.ExtraKey] = extra
	req.Fields = fields
	a.lastExtra = extra

	if err := a.out.Send(req); err != nil {
		return fmt.Errorf("send %s: %w", req.Type, err)
	}
	return nil
}
