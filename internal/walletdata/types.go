package walletdata

import "github.com/guregu/null"

// envelope is the shape of every Solana gateway response.
type envelope[T any] struct {
	Success bool        `json:"success"`
	Data    *T          `json:"data"`
	Error   null.String `json:"error"`
}

type pubkeyRequest struct {
	Pubkey string `json:"pubkey"`
}

type WalletToken struct {
	Symbol   string      `json:"symbol"`
	Name     string      `json:"name"`
	Address  null.String `json:"address"`
	Mint     null.String `json:"mint"`
	Decimals int         `json:"decimals"`
	Balance  float64     `json:"balance"`
	USDValue float64     `json:"usd_value"`
}

type WalletTokens struct {
	Pubkey      string        `json:"pubkey"`
	Tokens      []WalletToken `json:"tokens"`
	TotalTokens int           `json:"total_tokens"`
}

type ChainTransaction struct {
	Signature          string      `json:"signature"`
	Status             string      `json:"status"`
	ConfirmationStatus string      `json:"confirmation_status"`
	BlockTime          int64       `json:"block_time"`
	Slot               uint64      `json:"slot"`
	Fee                float64     `json:"fee"`
	Amount             float64     `json:"amount"`
	TokenSymbol        string      `json:"token_symbol"`
	TransactionType    string      `json:"transaction_type"`
	Error              null.String `json:"error"`
}

type PendingTransactions struct {
	Pubkey              string             `json:"pubkey"`
	PendingTransactions []ChainTransaction `json:"pending_transactions"`
	Count               int                `json:"count"`
}
