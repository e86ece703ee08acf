package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/gateway"
	"github.com/hamed0406/uptimebot/internal/registry"
)

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Handler runs one inbound update end to end.
type Handler struct {
	interp *Interpreter
	reg    *registry.Registry
	out    Sender
	log    *zap.Logger
}

func NewHandler(interp *Interpreter, reg *registry.Registry, out Sender, log *zap.Logger) *Handler {
	return &Handler{interp: interp, reg: reg, out: out, log: log}
}

// Handle parses the update, registers the sender on first contact, applies
// the command's mutation and sends the reply. When the mutation fails no
// reply is sent, so the user is never told about a change that did not stick.
func (h *Handler) Handle(ctx context.Context, u gateway.Update) error {
	cmd, err := Parse(u)
	if err != nil {
		return err
	}
	if _, err := h.reg.Touch(ctx, cmd.Subscriber); err != nil {
		return fmt.Errorf("touch %d: %w", cmd.Subscriber.ExternalID, err)
	}

	out := h.interp.Interpret(cmd)
	if out.Mutation != nil {
		if err := out.Mutation(ctx, h.reg); err != nil {
			return fmt.Errorf("%s for %d: %w", cmd.Kind, cmd.Subscriber.ExternalID, err)
		}
		h.log.Info("command_applied",
			zap.String("command", cmd.Kind.String()),
			zap.Int64("external_id", cmd.Subscriber.ExternalID),
		)
	}
	if !out.HasReply {
		return nil
	}
	if err := h.out.SendMessage(ctx, cmd.Subscriber.ChatID, out.Reply); err != nil {
		return fmt.Errorf("reply to chat %d: %w", cmd.Subscriber.ChatID, err)
	}
	return nil
}
