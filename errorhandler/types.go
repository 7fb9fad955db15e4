package errorhandler

import (
	"context"

	"github.com/hugolhafner/go-consumer/kafka"
)

type ActionType int

const (
	ActionTypeContinue ActionType = iota // Keep offsets, the next cycle fetches the same batch again
	ActionTypeReset                      // Re-seed the fetch position from the partition start or end
	ActionTypeFail                       // Stop reading the partition
)

func (a ActionType) String() string {
	switch a {
	case ActionTypeContinue:
		return "Continue"
	case ActionTypeReset:
		return "Reset"
	case ActionTypeFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

var _ Action = ActionContinue{}
var _ Action = ActionReset{}
var _ Action = ActionFail{}

type Action interface {
	Type() ActionType
}

type ActionContinue struct{}

func (a ActionContinue) Type() ActionType {
	return ActionTypeContinue
}

type ActionReset struct {
	position kafka.Position
}

func NewActionReset(position kafka.Position) ActionReset {
	return ActionReset{position: position}
}

func (a ActionReset) Type() ActionType {
	return ActionTypeReset
}

func (a ActionReset) Position() kafka.Position {
	return a.position
}

type ActionFail struct{}

func (a ActionFail) Type() ActionType {
	return ActionTypeFail
}

type Handler interface {
	Handle(ctx context.Context, ec ErrorContext) Action
}

type HandlerFunc func(ctx context.Context, ec ErrorContext) Action

func (f HandlerFunc) Handle(ctx context.Context, ec ErrorContext) Action {
	return f(ctx, ec)
}
