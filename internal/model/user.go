package model

import "time"

// User represents a registered account.
//
// Accounts come from two places: the registration form (username + password)
// and GitHub sign-in. A GitHub-only account has an empty PasswordHash, so
// password login can never succeed for it. GitHubID is nil for accounts that
// never signed in through GitHub; the UNIQUE constraint on github_id ignores
// NULLs, so any number of local accounts can coexist.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
