package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"memoflow/internal/directory"
	jwttoken "memoflow/internal/jwt_token"
	"memoflow/internal/platform/secrets"
	dErrors "memoflow/pkg/domain-errors"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	UserID string
	Role   string
	TTL    time.Duration
	Secret string
}

type tokenOutput struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCommand mints a bearer token with the server's signing settings.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Mint a bearer token for the HTTP API",
		Example:       `  memoctl token --user admin-1 --role admin --ttl 1h --secret "$MEMOCTL_OPERATOR_SECRET"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "subject user id (required)")
	cmd.Flags().StringVar(&opts.Role, "role", "", "admin|secretary (required)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "operator secret, checked when MEMOCTL_OPERATOR_SECRET_HASH is set")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func runToken(opts *TokenOptions, cmd *cobra.Command) error {
	role := directory.Role(opts.Role)
	if role != directory.RoleAdmin && role != directory.RoleSecretary {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid role %q: must be admin or secretary", opts.Role))
	}
	if opts.TTL <= 0 {
		return NewExitError(ExitCommandError, "ttl must be positive")
	}

	cfg := opts.Config
	if cfg.OperatorSecretHash != "" {
		if opts.Secret == "" {
			return NewExitError(ExitFailure, "operator secret required: pass --secret")
		}
		if err := secrets.Verify(opts.Secret, cfg.OperatorSecretHash); err != nil {
			if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
				return domainFailure("verify operator secret", err)
			}
			return WrapExitError(ExitCommandError, "verify operator secret", err)
		}
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	issued := time.Now()
	token, err := tokens.GenerateAccessToken(opts.UserID, string(role), opts.TTL)
	if err != nil {
		return domainFailure("mint token", err)
	}

	out := opts.formatter(cmd)
	if out.JSON() {
		return out.Success(tokenOutput{
			Token:     token,
			UserID:    opts.UserID,
			Role:      string(role),
			ExpiresAt: issued.Add(opts.TTL).UTC(),
		})
	}
	_, err = fmt.Fprintln(out.Writer, token)
	return err
}

// NewHashSecretCommand prints the bcrypt hash to store in MEMOCTL_OPERATOR_SECRET_HASH.
func NewHashSecretCommand(rootOpts *RootOptions) *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:           "hash-secret",
		Short:         "Hash an operator secret for MEMOCTL_OPERATOR_SECRET_HASH",
		Example:       `  memoctl hash-secret --secret "$(openssl rand -base64 24)"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := secrets.Hash(secret)
			if err != nil {
				return domainFailure("hash secret", err)
			}
			out := rootOpts.formatter(cmd)
			if out.JSON() {
				return out.Success(map[string]string{"hash": hash})
			}
			_, err = fmt.Fprintln(out.Writer, hash)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "operator secret (required)")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}
