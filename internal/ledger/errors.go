package ledger

import "boundless/internal/domain"

// Contract error codes as emitted by the escrow ledger.
const (
	codeAlreadyInitialized = 1
	codeProjectExists      = 3
	codeProjectNotFound    = 4
	codeInvalidTarget      = 5
	codeFundingEnded       = 8
	codeVotingEnded        = 9
	codeAlreadyVoted       = 10
	codeMilestoneReleased  = 13
	codeMilestoneApproved  = 14
	codeMilestoneRejected  = 15
	codeInsufficientFunds  = 16
	codeRefundProcessed    = 17
	codeTransferFailed     = 23
)

var codeMessages = map[int]string{
	codeAlreadyInitialized: "contract has already been initialized",
	codeProjectExists:      "project with the given ID already exists",
	codeProjectNotFound:    "project with the given ID does not exist",
	codeInvalidTarget:      "invalid funding target amount",
	codeFundingEnded:       "funding period has ended",
	codeVotingEnded:        "voting period has ended",
	codeAlreadyVoted:       "user has already voted",
	codeMilestoneReleased:  "milestone has already been released",
	codeMilestoneApproved:  "milestone has already been approved",
	codeMilestoneRejected:  "milestone has already been rejected",
	codeInsufficientFunds:  "insufficient funds",
	codeRefundProcessed:    "refund already processed",
	codeTransferFailed:     "transfer failed",
}

// DecodeCode maps a raw contract error code to the domain taxonomy. Unmapped
// codes decode to LedgerRejected with the raw code preserved.
func DecodeCode(code int) *domain.Error {
	msg, known := codeMessages[code]
	if !known {
		msg = "unexpected ledger error"
	}

	var kind domain.Kind
	switch code {
	case codeAlreadyInitialized, codeProjectExists, codeAlreadyVoted,
		codeMilestoneReleased, codeMilestoneApproved, codeMilestoneRejected,
		codeRefundProcessed:
		kind = domain.KindConflict
	case codeProjectNotFound:
		kind = domain.KindNotFound
	case codeInvalidTarget:
		kind = domain.KindInvalidInput
	case codeFundingEnded, codeVotingEnded:
		kind = domain.KindWindowClosed
	case codeInsufficientFunds:
		kind = domain.KindInsufficientFunds
	default:
		kind = domain.KindLedgerRejected
	}

	return &domain.Error{Kind: kind, Msg: msg, RawCode: code}
}
