// ABOUTME: Credential validation against a Mastodon server.
// ABOUTME: Tests an access token with verify_credentials and checks it matches the username.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedimove/fedimove/internal/mastodon"
)

// ValidateCredentials tests the access token against the instance and checks
// that it belongs to the given username. The context allows cancellation
// when the user quits during validation.
func ValidateCredentials(ctx context.Context, instance, username, token string) error {
	client := mastodon.NewClient(instance, token)
	account, err := client.VerifyCredentials(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(account.Username, username) && !strings.EqualFold(account.Acct, username) {
		return fmt.Errorf("token belongs to @%s, not @%s", account.Username, username)
	}
	return nil
}
