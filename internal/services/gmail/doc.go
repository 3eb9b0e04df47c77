// Package gmail creates follow-up drafts in the owner's mailbox.
//
// Credentials follow the installed-app OAuth flow: an OAuth client file
// (credentials.json) plus a previously authorized token file (token.json, in
// either the google-auth or the golang.org/x/oauth2 layout). Refreshed tokens
// are written back so the next run starts from a valid access token.
//
// Besides CreateDraft, the service exposes the owner's primary send-as display
// name and short snippets of recent correspondence with a set of addresses,
// both used to give the draft generator extra context.
package gmail
