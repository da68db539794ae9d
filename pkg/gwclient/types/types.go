// Package types holds the JSON payloads exchanged with the gateway.
package types

import (
	"github.com/guregu/null"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Session timestamps are kept as the strings the gateway sends, the client never does arithmetic on them.
type Session struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"created_at"`
}

type Endpoint struct {
	Endpoint    string         `json:"endpoint"`
	Method      string         `json:"method"`
	Description string         `json:"description"`
	Params      map[string]any `json:"params,omitempty"`
	RiskLevel   RiskLevel      `json:"risk_level" validate:"oneof=low medium high"`
}

type ProposedAction struct {
	ActionID          string     `json:"action_id" validate:"required"`
	IntentDescription string     `json:"intent_description"`
	ConfidenceScore   float64    `json:"confidence_score" validate:"gte=0,lte=1"`
	EndpointsToCall   []Endpoint `json:"endpoints_to_call" validate:"dive"`
	EstimatedCost     float64    `json:"estimated_cost"`
	Warnings          []string   `json:"warnings"`
}

// HighRiskEndpoints returns the endpoints the user should review before approving.
func (a ProposedAction) HighRiskEndpoints() []Endpoint {
	var endpoints []Endpoint
	for _, e := range a.EndpointsToCall {
		if e.RiskLevel == RiskLevelHigh {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints
}

type PreparedTransaction struct {
	TransactionID       string      `json:"transaction_id" validate:"required"`
	TransactionType     string      `json:"transaction_type"`
	UnsignedTransaction string      `json:"unsigned_transaction" validate:"required,base64"`
	FromAddress         string      `json:"from_address" validate:"required"`
	ToAddress           null.String `json:"to_address"`
	Amount              null.Float  `json:"amount"`
	Token               null.String `json:"token"`
	FeeEstimate         float64     `json:"fee_estimate" validate:"gte=0"`
}

type ActionResponse struct {
	ActionID       string         `json:"action_id"`
	Approved       bool           `json:"approved"`
	ModifiedParams map[string]any `json:"modified_params,omitempty"`
}

type SendMessageRequest struct {
	Content           string          `json:"content"`
	Role              Role            `json:"role"`
	ActionResponse    *ActionResponse `json:"action_response,omitempty"`
	SignedTransaction string          `json:"signed_transaction,omitempty"`
	TransactionID     string          `json:"transaction_id,omitempty"`
}

type SendMessageResponse struct {
	UserMessage         Message              `json:"user_message"`
	AIMessage           Message              `json:"ai_message"`
	ProposedActions     *ProposedAction      `json:"proposed_actions"`
	PreparedTransaction *PreparedTransaction `json:"prepared_transaction"`
}

type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// ChallengeResponse accepts both the current `challenge` field and the legacy `message` one.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	Message   string `json:"message"`
}

func (r ChallengeResponse) Value() string {
	if r.Challenge != "" {
		return r.Challenge
	}
	return r.Message
}

type VerifyRequest struct {
	WalletAddress string `json:"wallet_address"`
	Signature     string `json:"signature"`
	Challenge     string `json:"challenge"`
}

// TokenResponse accepts both the `jwt` and the `token` field names.
type TokenResponse struct {
	JWT   string `json:"jwt"`
	Token string `json:"token"`
}

func (r TokenResponse) Value() string {
	if r.JWT != "" {
		return r.JWT
	}
	return r.Token
}

type HealthResponse struct {
	Status string `json:"status"`
}
