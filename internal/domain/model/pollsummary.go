package model

// PollStatus is the terminal state of a poll cycle.
type PollStatus string

const (
	// PollNoCredential means the user has no promotion-service credential.
	PollNoCredential PollStatus = "no_credential"

	// PollInsufficientBalance means the balance query failed or returned
	// zero or less; no account was inspected.
	PollInsufficientBalance PollStatus = "insufficient_balance"

	// PollNoAccounts means the user tracks no wall accounts.
	PollNoAccounts PollStatus = "no_accounts"

	// PollCompleted means the full account list was walked.
	PollCompleted PollStatus = "completed"
)

// PollSummary is the result of one poll cycle for one user.
type PollSummary struct {
	Status  PollStatus
	Reason  string  // populated for insufficient_balance
	Balance float64 // promotion-service balance at cycle start

	Checked   int      // accounts whose wall yielded a post this cycle
	Updated   int      // accounts whose new post was accepted for promotion
	Forwarded []string // raw inputs of accounts in Updated, in poll order
}
