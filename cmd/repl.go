package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	set "github.com/deckarep/golang-set/v2"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/app"
	"github.com/solanize/solanize-client/internal/chat"
	"github.com/solanize/solanize-client/internal/transactions"
	"github.com/solanize/solanize-client/internal/utils"
	"github.com/solanize/solanize-client/internal/wallet"
	"github.com/solanize/solanize-client/pkg/gwclient"
	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

const replHelp = `Type a message to talk to the agent, or one of:
  /new [title]            start a new session
  /sessions               list sessions
  /switch <id>            switch to a session and show its messages
  /delete [id]            delete a session, the current one by default
  /pending                show actions and transactions awaiting you
  /approve <id> [json]    approve a proposed action, optionally with edited parameters
  /reject <id>            reject a proposed action
  /sign <id>              sign a prepared transaction and send it back
  /cancel <id>            drop a prepared transaction
  /portfolio              show balances
  /retry                  retry the last failed operation
  /refresh                rotate the session credential now
  /logout                 forget the credential and quit
  /quit                   quit`

var errUnknownCommand = errors.New("unknown command, type /help")

// repl is the interactive chat loop. Wallet confirmations are read from the same input as the commands.
type repl struct {
	app   *app.App
	lines *bufio.Scanner
	out   io.Writer

	announced set.Set[string]
}

func newREPL(in io.Reader, out io.Writer) *repl {
	return &repl{
		lines:     bufio.NewScanner(in),
		out:       out,
		announced: set.NewThreadUnsafeSet[string](),
	}
}

// approve asks the user before a transaction is signed. Connection and challenge signatures are part of logging in
// and are accepted.
func (r *repl) approve(_ context.Context, req wallet.ApprovalRequest) (bool, error) {
	if req.Kind != wallet.ApprovalKindSignTransaction {
		return true, nil
	}

	fmt.Fprintf(r.out, "Sign %s with %s? [y/N] ", req.Summary, utils.ShortAddress(req.Address))
	if !r.lines.Scan() {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(r.lines.Text()))
	return answer == "y" || answer == "yes", nil
}

func (r *repl) Run(ctx context.Context) error {
	fmt.Fprintf(r.out, "Connected as %s. Type /help for commands.\n", r.app.Auth.Snapshot().WalletAddress)
	if err := r.app.Chat.ListSessions(ctx); err != nil {
		r.printError(ctx, err)
	}
	if session, ok := r.app.Chat.CurrentSession(); ok {
		fmt.Fprintf(r.out, "Current session: %s\n", session.Title)
	}

	for {
		fmt.Fprint(r.out, "> ")
		if !r.lines.Scan() {
			fmt.Fprintln(r.out)
			if err := r.lines.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			return nil
		}

		line := strings.TrimSpace(utils.SanitizeUTF8(r.lines.Text()))
		if line == "" {
			continue
		}

		if err := r.app.RefreshCredential(ctx); err != nil {
			log.Ctx(ctx).Warnf("keeping the current credential: %v", err)
		}
		quit, err := r.handle(ctx, line)
		if err != nil {
			r.printError(ctx, err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}

	name, args := parseCommand(line)
	switch name {
	case "help":
		fmt.Fprintln(r.out, replHelp)
	case "quit", "exit":
		return true, nil
	case "logout":
		r.app.Auth.Logout(ctx)
		fmt.Fprintln(r.out, "Logged out.")
		return true, nil
	case "new":
		session, err := r.app.Chat.CreateSession(ctx, args)
		if err != nil {
			return false, err //nolint:wrapcheck
		}
		fmt.Fprintf(r.out, "Started session %s (%s)\n", session.Title, session.ID)
	case "sessions":
		if err := r.app.Chat.ListSessions(ctx); err != nil {
			return false, err //nolint:wrapcheck
		}
		printSessions(r.out, r.app.Chat)
	case "switch":
		if args == "" {
			return false, fmt.Errorf("usage: /switch <id>")
		}
		if err := r.app.Chat.SwitchSession(ctx, args); err != nil {
			return false, err //nolint:wrapcheck
		}
		r.printTranscript(args)
		r.announce()
	case "delete":
		return false, r.delete(ctx, args)
	case "pending":
		r.announced.Clear()
		if !r.announce() {
			fmt.Fprintln(r.out, "Nothing is waiting for you.")
		}
	case "approve":
		id, rawParams := splitFirst(args)
		params, err := parseParams(rawParams)
		if err != nil {
			return false, err
		}
		return false, r.respond(ctx, id, func(ctx context.Context) error {
			return r.app.Chat.ApproveAction(ctx, id, params)
		})
	case "reject":
		id, _ := splitFirst(args)
		return false, r.respond(ctx, id, func(ctx context.Context) error {
			return r.app.Chat.RejectAction(ctx, id)
		})
	case "sign":
		return false, r.sign(ctx, args)
	case "cancel":
		if err := r.app.Orchestrator.Cancel(ctx, args); err != nil {
			return false, err //nolint:wrapcheck
		}
		fmt.Fprintln(r.out, "Transaction cancelled.")
	case "portfolio":
		if err := (&portfolioCmd{}).Run(ctx, r.app.WalletData, r.out); err != nil {
			return false, err
		}
	case "refresh":
		if err := r.app.Auth.RefreshToken(ctx); err != nil {
			return false, err //nolint:wrapcheck
		}
		fmt.Fprintln(r.out, "Credential refreshed.")
	case "retry":
		if err := r.app.Chat.RetryLast(ctx); err != nil {
			return false, err //nolint:wrapcheck
		}
		r.printLastReply(r.app.Chat.CurrentSessionID())
		r.announce()
	default:
		return false, fmt.Errorf("/%s: %w", name, errUnknownCommand)
	}
	return false, nil
}

func (r *repl) send(ctx context.Context, content string) error {
	resp, err := r.app.Chat.Send(ctx, content)
	if err != nil {
		return err //nolint:wrapcheck
	}
	fmt.Fprintf(r.out, "agent> %s\n", resp.AIMessage.Content)
	r.announce()
	return nil
}

func (r *repl) respond(ctx context.Context, actionID string, respond func(ctx context.Context) error) error {
	if actionID == "" {
		return fmt.Errorf("an action id is required")
	}
	_, sessionID, ok := r.app.Chat.PendingAction(actionID)
	if !ok {
		return chat.ErrActionNotPending
	}
	if err := respond(ctx); err != nil {
		return err
	}
	r.printLastReply(sessionID)
	r.announce()
	return nil
}

func (r *repl) sign(ctx context.Context, id string) error {
	entry, ok := r.app.Orchestrator.Get(id)
	if !ok {
		return transactions.ErrNotPending
	}
	if err := r.app.Orchestrator.SignAndSend(ctx, id); err != nil {
		return err //nolint:wrapcheck
	}
	fmt.Fprintln(r.out, "Transaction signed and sent.")
	r.printLastReply(entry.SessionID)
	r.announce()
	return nil
}

func (r *repl) delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = r.app.Chat.CurrentSessionID()
	}
	if sessionID == "" {
		return fmt.Errorf("no session to delete")
	}
	if err := r.app.Chat.DeleteSession(ctx, sessionID); err != nil {
		return err //nolint:wrapcheck
	}
	for _, entry := range r.app.Orchestrator.Pending() {
		if entry.SessionID != sessionID {
			continue
		}
		if err := r.app.Orchestrator.Cancel(ctx, entry.ID); err != nil && !errors.Is(err, transactions.ErrNotPending) {
			log.Ctx(ctx).Warnf("cancelling transaction %s of deleted session: %v", entry.ID, err)
		}
	}
	fmt.Fprintf(r.out, "Deleted session %s\n", sessionID)
	if session, ok := r.app.Chat.CurrentSession(); ok {
		fmt.Fprintf(r.out, "Current session: %s\n", session.Title)
	}
	return nil
}

// announce prints the actions and transactions that became pending since the last call. It reports whether anything
// is pending at all.
func (r *repl) announce() bool {
	actions := r.app.Chat.CurrentPendingActions()
	for _, action := range actions {
		if r.announced.Contains(action.ActionID) {
			continue
		}
		r.announced.Add(action.ActionID)
		printProposedAction(r.out, action)
	}

	pending := r.app.Orchestrator.Pending()
	for _, entry := range pending {
		if r.announced.Contains(entry.ID) {
			continue
		}
		r.announced.Add(entry.ID)
		printPreparedTransaction(r.out, entry.ID, entry.Transaction)
	}
	return len(actions) > 0 || len(pending) > 0
}

func (r *repl) printTranscript(sessionID string) {
	for _, msg := range r.app.Chat.Messages(sessionID) {
		printMessage(r.out, msg)
	}
}

func (r *repl) printLastReply(sessionID string) {
	messages := r.app.Chat.Messages(sessionID)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleAssistant {
			printMessage(r.out, messages[i])
			return
		}
	}
}

func (r *repl) printError(ctx context.Context, err error) {
	message := err.Error()
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		message = chatErr.Message
		if chatErr.Retry != nil {
			message += " (type /retry to try again)"
		}
	}
	fmt.Fprintf(r.out, "error: %s\n", message)

	if chat.KindOf(err) == gwclient.ErrorKindAuth {
		fmt.Fprintln(r.out, "Your session expired, signing in again...")
		if authErr := r.app.Auth.Authenticate(ctx); authErr != nil {
			log.Ctx(ctx).Warnf("re-authenticating: %v", authErr)
			fmt.Fprintf(r.out, "error: signing in failed: %v\n", authErr)
		}
	}
}

func printMessage(out io.Writer, msg types.Message) {
	speaker := "you"
	if msg.Role == types.RoleAssistant {
		speaker = "agent"
	}
	fmt.Fprintf(out, "%s> %s\n", speaker, msg.Content)
}

func printProposedAction(out io.Writer, action types.ProposedAction) {
	fmt.Fprintf(out, "Proposed action %s: %s (confidence %.0f%%, estimated cost %g)\n",
		action.ActionID, action.IntentDescription, action.ConfidenceScore*100, action.EstimatedCost)
	for _, endpoint := range action.EndpointsToCall {
		fmt.Fprintf(out, "  %s %s [%s risk] %s\n", endpoint.Method, endpoint.Endpoint, endpoint.RiskLevel, endpoint.Description)
	}
	for _, endpoint := range action.HighRiskEndpoints() {
		if len(endpoint.Params) == 0 {
			continue
		}
		params, err := json.Marshal(endpoint.Params)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  review before approving %s: %s\n", endpoint.Endpoint, params)
	}
	for _, warning := range action.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", warning)
	}
	fmt.Fprintf(out, "  /approve %s [json] or /reject %s\n", action.ActionID, action.ActionID)
}

func printPreparedTransaction(out io.Writer, id string, tx types.PreparedTransaction) {
	summary := tx.TransactionType
	if tx.Amount.Valid {
		summary += fmt.Sprintf(" %g", tx.Amount.Float64)
	}
	if tx.Token.Valid {
		summary += " " + tx.Token.String
	}
	if tx.ToAddress.Valid {
		summary += " to " + utils.ShortAddress(tx.ToAddress.String)
	}
	fmt.Fprintf(out, "Transaction ready to sign: %s (fee %g SOL)\n", summary, tx.FeeEstimate)
	fmt.Fprintf(out, "  /sign %s or /cancel %s\n", id, id)
}

// parseCommand splits "/name rest of line" into its name and trimmed arguments.
func parseCommand(line string) (string, string) {
	name, args := splitFirst(strings.TrimPrefix(line, "/"))
	return strings.ToLower(name), args
}

func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	first, rest, _ := strings.Cut(s, " ")
	return first, strings.TrimSpace(rest)
}

func parseParams(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("parsing modified parameters, a JSON object is expected: %w", err)
	}
	return params, nil
}
