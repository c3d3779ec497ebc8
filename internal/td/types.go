package td

import (
	"fmt"
	"strings"
)

// Event discriminators.
const (
	TypeUpdateAuthorizationState = "updateAuthorizationState"
	TypeError                    = "error"
	TypeUpdateNewMessage         = "updateNewMessage"
)

// Request discriminators.
const (
	TypeGetAuthorizationState         = "getAuthorizationState"
	TypeSetTdlibParameters            = "setTdlibParameters"
	TypeCheckDatabaseEncryptionKey    = "checkDatabaseEncryptionKey"
	TypeSetAuthenticationPhoneNumber  = "setAuthenticationPhoneNumber"
	TypeCheckAuthenticationCode       = "checkAuthenticationCode"
	TypeRegisterUser                  = "registerUser"
	TypeCheckAuthenticationPassword   = "checkAuthenticationPassword"
	TypeSetAuthenticationEmailAddress = "setAuthenticationEmailAddress"
	TypeCheckAuthenticationEmailCode  = "checkAuthenticationEmailCode"
	TypeGetChats                      = "getChats"
	TypeSendMessage                   = "sendMessage"
	TypeForwardMessages               = "forwardMessages"
	TypeSetLogVerbosityLevel          = "setLogVerbosityLevel"
)

// ExtraKey is the field the engine echoes back unchanged in the answer to
// a request.
const ExtraKey = "@extra"

// Request is an outbound message: a discriminator plus named fields.
type Request struct {
	Type   string
	Fields map[string]any
}

func NewRequest(typ string, fields map[string]any) Request {
	return Request{Type: typ, Fields: fields}
}

// Event is an inbound message. Payload holds every field except "@type".
type Event struct {
	Type    string
	Payload map[string]any
	Raw     []byte
}

// Object returns a nested object field, or nil.
func (e *Event) Object(key string) map[string]any {
	if e == nil {
		return nil
	}
	m, _ := e.Payload[key].(map[string]any)
	return m
}

// AuthorizationPhase extracts the phase from an updateAuthorizationState
// event, or from a bare authorizationState object as returned by
// getAuthorizationState. ok is false for any other event.
func (e *Event) AuthorizationPhase() (Phase, bool) {
	if e == nil {
		return PhaseUnknown, false
	}
	if e.Type == TypeUpdateAuthorizationState {
		state := e.Object("authorization_state")
		typ, _ := state["@type"].(string)
		return ParsePhase(typ), true
	}
	if strings.HasPrefix(e.Type, "authorizationState") {
		return ParsePhase(e.Type), true
	}
	return PhaseUnknown, false
}

// Extra returns the @extra tag as a string, or "".
func (e *Event) Extra() string {
	if e == nil {
		return ""
	}
	switch v := e.Payload[ExtraKey].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ErrorInfo reports code and message of an error event.
func (e *Event) ErrorInfo() (code int, message string, ok bool) {
	if e == nil || e.Type != TypeError {
		return 0, "", false
	}
	message, _ = e.Payload["message"].(string)
	code, _ = toInt(e.Payload["code"])
	return code, message, true
}

// Phase is a step of the login handshake as reported by the engine.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseWaitParameters
	PhaseWaitEncryptionKey
	PhaseWaitPhoneNumber
	PhaseWaitCode
	PhaseWaitRegistration
	PhaseWaitPassword
	PhaseWaitEmailAddress
	PhaseWaitEmailCode
	PhaseReady
	PhaseClosing
	PhaseClosed
)

var phaseNames = map[Phase]string{
	PhaseWaitParameters:    "authorizationStateWaitTdlibParameters",
	PhaseWaitEncryptionKey: "authorizationStateWaitEncryptionKey",
	PhaseWaitPhoneNumber:   "authorizationStateWaitPhoneNumber",
	PhaseWaitCode:          "authorizationStateWaitCode",
	PhaseWaitRegistration:  "authorizationStateWaitRegistration",
	PhaseWaitPassword:      "authorizationStateWaitPassword",
	PhaseWaitEmailAddress:  "authorizationStateWaitEmailAddress",
	PhaseWaitEmailCode:     "authorizationStateWaitEmailCode",
	PhaseReady:             "authorizationStateReady",
	PhaseClosing:           "authorizationStateClosing",
	PhaseClosed:            "authorizationStateClosed",
}

var phasesByName = func() map[string]Phase {
	m := make(map[string]Phase, len(phaseNames))
	for p, name := range phaseNames {
		m[name] = p
	}
	return m
}()

// ParsePhase maps an engine discriminator to a Phase. Unrecognised names
// yield PhaseUnknown.
func ParsePhase(name string) Phase {
	if p, ok := phasesByName[name]; ok {
		return p
	}
	return PhaseUnknown
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "authorizationStateUnknown"
}

// Interactive reports whether the phase needs an answer from the user.
func (p Phase) Interactive() bool {
	switch p {
	case PhaseWaitPhoneNumber, PhaseWaitCode, PhaseWaitRegistration,
		PhaseWaitPassword, PhaseWaitEmailAddress, PhaseWaitEmailCode:
		return true
	}
	return false
}
