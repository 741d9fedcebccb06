package bus

import (
	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/orchestrator"
)

// Request is an inbound message. Kind selects which fields apply:
// transfer uses AmountLamports and RecipientPubkey; sign uses Message
// (standard base64). The key envelope is always Base58 text.
type Request struct {
	ID              string             `json:"id"`
	Kind            domain.RequestKind `json:"kind"`
	AmountLamports  int64              `json:"amount_lamports,omitempty"`
	RecipientPubkey string             `json:"recipient_pubkey,omitempty"`
	Message         string             `json:"message,omitempty"`
	EncryptedKey    string             `json:"encrypted_sender_private_key"`
}

// Result is the outbound message for one request.
type Result struct {
	ID             string                `json:"id"`
	Kind           domain.RequestKind    `json:"kind"`
	Status         domain.TransferStatus `json:"status"`
	Signature      string                `json:"signature,omitempty"`
	ExplorerURL    string                `json:"explorer_url,omitempty"`
	SenderPubkey   string                `json:"sender_pubkey,omitempty"`
	Attempts       int                   `json:"attempts,omitempty"`
	SubmitAttempts int                   `json:"submit_attempts,omitempty"`
	Discarded      bool                  `json:"discarded,omitempty"`
	Confirmed      bool                  `json:"confirmed,omitempty"`
	Error          *ErrorBody            `json:"error,omitempty"`
}

// ErrorBody describes a failure. It never carries key material.
type ErrorBody struct {
	Kind    domain.ErrorKind `json:"kind"`
	Stage   domain.Stage     `json:"stage"`
	Message string           `json:"message"`
}

// resultFrom converts an orchestrator outcome to its wire form.
func resultFrom(res *orchestrator.Result) *Result {
	out := &Result{
		ID:             res.RequestID,
		Kind:           res.Kind,
		Status:         res.Status,
		Signature:      res.Signature,
		ExplorerURL:    res.ExplorerURL,
		SenderPubkey:   res.SenderPubkey,
		Attempts:       res.Attempts,
		SubmitAttempts: res.SubmitAttempts,
		Discarded:      res.Discarded,
		Confirmed:      res.Confirmed,
	}
	if res.Error != nil {
		out.Error = &ErrorBody{
			Kind:    res.Error.Kind,
			Stage:   res.Error.Stage,
			Message: res.Error.Err.Error(),
		}
	}
	return out
}

// rejected builds a failure result for a request that never reached the
// orchestrator.
func rejected(id string, kind domain.RequestKind, errKind domain.ErrorKind, msg string) *Result {
	return &Result{
		ID:     id,
		Kind:   kind,
		Status: domain.StatusFailed,
		Error: &ErrorBody{
			Kind:    errKind,
			Stage:   domain.StageReceived,
			Message: msg,
		},
	}
}
