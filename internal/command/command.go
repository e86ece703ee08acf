package command

import (
	"context"
	"strings"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/gateway"
	"github.com/hamed0406/uptimebot/internal/registry"
)

const (
	ReplyStarted = "subscription started"
	ReplyStopped = "subscription stopped"
)

type Kind int

const (
	Unknown Kind = iota
	Start
	Stop
	Status
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "/start"
	case Stop:
		return "/stop"
	case Status:
		return "/status"
	default:
		return "unknown"
	}
}

// Command is a parsed inbound message. Subscriber carries the sender's
// identity and current chat; its Subscribed flag is meaningless here.
type Command struct {
	UpdateID   int64
	Kind       Kind
	Subscriber domain.Subscriber
}

// Parse validates the update shape and recognizes the command by exact match
// on the trimmed text.
func Parse(u gateway.Update) (Command, error) {
	m := u.Message
	switch {
	case m == nil:
		return Command{}, &domain.MalformedUpdateError{UpdateID: u.ID, Reason: "no message"}
	case m.From == nil:
		return Command{}, &domain.MalformedUpdateError{UpdateID: u.ID, Reason: "no sender"}
	case m.Chat == nil:
		return Command{}, &domain.MalformedUpdateError{UpdateID: u.ID, Reason: "no chat"}
	}

	cmd := Command{
		UpdateID: u.ID,
		Subscriber: domain.Subscriber{
			ExternalID: m.From.ID,
			ChatID:     m.Chat.ID,
			FirstName:  m.From.FirstName,
			LastName:   m.From.LastName,
			Username:   m.From.Username,
		},
	}
	switch strings.TrimSpace(m.Text) {
	case "/start":
		cmd.Kind = Start
	case "/stop":
		cmd.Kind = Stop
	case "/status":
		cmd.Kind = Status
	}
	return cmd, nil
}

// Mutation is a registry change produced by a command.
type Mutation func(ctx context.Context, reg *registry.Registry) error

type Outcome struct {
	Reply    string
	HasReply bool
	Mutation Mutation
}

type StatusReporter interface {
	Report() string
}

type Interpreter struct {
	status StatusReporter
}

func NewInterpreter(status StatusReporter) *Interpreter {
	return &Interpreter{status: status}
}

// Interpret has no side effects; the caller applies the mutation and sends
// the reply.
func (i *Interpreter) Interpret(cmd Command) Outcome {
	switch cmd.Kind {
	case Start:
		s := cmd.Subscriber
		s.Subscribed = true
		return Outcome{
			Reply:    ReplyStarted,
			HasReply: true,
			Mutation: func(ctx context.Context, reg *registry.Registry) error {
				return reg.Upsert(ctx, s)
			},
		}
	case Stop:
		id := cmd.Subscriber.ExternalID
		return Outcome{
			Reply:    ReplyStopped,
			HasReply: true,
			Mutation: func(ctx context.Context, reg *registry.Registry) error {
				return reg.SetSubscribed(ctx, id, false)
			},
		}
	case Status:
		return Outcome{Reply: i.status.Report(), HasReply: true}
	default:
		return Outcome{}
	}
}
