package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrew/rag-loader/pkg/auth"
)

type tokenOptions struct {
	secret     string
	access     string
	collection string
	ttl        time.Duration
	claims     string
}

func newTokenCmd(a *app) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a Qdrant JWT access token",
		Long: `Signs a claim set with HMAC-SHA256. By default the claims grant --access
to every collection (or only --collection), expiring after --ttl. --claims
replaces them with an explicit JSON object.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := a.cfg.Token.Secret
			if cmd.Flags().Changed("secret") {
				secret = opts.secret
			}
			if secret == "" {
				return errors.New("a signing secret is required (--secret or QDRANT_JWT_SECRET)")
			}

			claims, err := buildClaims(opts, time.Now())
			if err != nil {
				return err
			}

			token, err := auth.MintToken(secret, claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.secret, "secret", "", "Signing secret (Qdrant's jwt key)")
	cmd.Flags().StringVar(&opts.access, "access", auth.AccessRead, "Access level: r, rw or m")
	cmd.Flags().StringVar(&opts.collection, "collection", "", "Limit access to one collection")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "Token lifetime, 0 for no expiry")
	cmd.Flags().StringVar(&opts.claims, "claims", "", "Explicit claims as a JSON object")

	return cmd
}

func buildClaims(opts *tokenOptions, now time.Time) (map[string]any, error) {
	if opts.claims != "" {
		var claims map[string]any
		if err := json.Unmarshal([]byte(opts.claims), &claims); err != nil {
			return nil, fmt.Errorf("invalid --claims JSON: %w", err)
		}
		return claims, nil
	}

	if opts.collection != "" {
		grants := []auth.CollectionAccess{{Collection: opts.collection, Access: opts.access}}
		return auth.AccessClaims(grants, opts.ttl, now), nil
	}

	switch opts.access {
	case auth.AccessRead, auth.AccessManage:
		return auth.AccessClaims(opts.access, opts.ttl, now), nil
	default:
		return nil, fmt.Errorf("global access must be %q or %q, got %q", auth.AccessRead, auth.AccessManage, opts.access)
	}
}
