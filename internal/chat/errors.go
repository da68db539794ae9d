package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/solanize/solanize-client/internal/validators"
	"github.com/solanize/solanize-client/internal/wallet"
	"github.com/solanize/solanize-client/pkg/gwclient"
)

var (
	ErrEmptyMessage       = errors.New("message content is empty")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotCreated  = errors.New("session is still being created")
	ErrActionNotPending   = errors.New("action is not pending")
	ErrStaleResult        = errors.New("result arrived for a session or identity that is no longer current")
	ErrNothingToRetry     = errors.New("there is no failed operation to retry")
	errEmptySessionResult = errors.New("gateway returned an empty session")
)

// Op names the store operation an Error came from.
type Op string

const (
	OpListSessions  Op = "list_sessions"
	OpCreateSession Op = "create_session"
	OpLoadMessages  Op = "load_messages"
	OpSendMessage   Op = "send_message"
	OpApproveAction Op = "approve_action"
	OpRejectAction  Op = "reject_action"
	OpSubmitSigned  Op = "submit_signed_transaction"
	OpDeleteSession Op = "delete_session"
)

var opDescriptions = map[Op]string{
	OpListSessions:  "load chat sessions",
	OpCreateSession: "create a new chat",
	OpLoadMessages:  "load messages",
	OpSendMessage:   "send message",
	OpApproveAction: "approve the action",
	OpRejectAction:  "reject the action",
	OpSubmitSigned:  "submit the signed transaction",
	OpDeleteSession: "delete the chat",
}

// Error is what every failed store operation returns. Retry re-runs the operation with its original arguments.
type Error struct {
	Kind    gwclient.ErrorKind
	Op      Op
	Message string
	Err     error
	Retry   func(ctx context.Context) error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Wallet rejections win over whatever wraps them.
func KindOf(err error) gwclient.ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, wallet.ErrUserRejected) {
		return gwclient.ErrorKindWalletRejection
	}
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}
	var vErr *validators.ValidationError
	if errors.As(err, &vErr) {
		return gwclient.ErrorKindValidation
	}
	return gwclient.KindOf(err)
}

func newError(op Op, err error, retry func(ctx context.Context) error) *Error {
	kind := KindOf(err)

	message := fmt.Sprintf("Failed to %s", opDescriptions[op])
	var apiErr *gwclient.APIError
	switch {
	case kind == gwclient.ErrorKindWalletRejection:
		message = "The request was rejected in the wallet"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		message = apiErr.Message
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
		Retry:   retry,
	}
}
