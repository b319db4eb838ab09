package inlinechat

import "github.com/sweetpotato0/termchat/contextkey"

// ResponseType is the kind of the last rendered response.
type ResponseType string

const (
	ResponseTypeNone         ResponseType = ""
	ResponseTypeCommand      ResponseType = "command"
	ResponseTypeMessagesOnly ResponseType = "messagesOnly"
)

// Context flags published by the controller.
var (
	RequestActiveKey   = contextkey.NewKey("terminalChat.requestActive", false)
	AgentRegisteredKey = contextkey.NewKey("terminalChat.agentRegistered", false)
	ResponseTypeKey    = contextkey.NewKey("terminalChat.responseType", ResponseTypeNone)
)

// Flags holds the controller's context flags bound to a service.
type Flags struct {
	RequestActive   *contextkey.Bound[bool]
	AgentRegistered *contextkey.Bound[bool]
	ResponseType    *contextkey.Bound[ResponseType]
}

// BindFlags binds the flags to svc and resets them to their defaults.
func BindFlags(svc *contextkey.Service) *Flags {
	if svc == nil {
		svc = contextkey.NewService()
	}
	return &Flags{
		RequestActive:   RequestActiveKey.BindTo(svc),
		AgentRegistered: AgentRegisteredKey.BindTo(svc),
		ResponseType:    ResponseTypeKey.BindTo(svc),
	}
}
