package cmd

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/spf13/cobra"
)

// adminTokenParams follows OWASP's minimum Argon2id parameters (46 MiB
// memory, 1 iteration, 1 degree of parallelism).
var adminTokenParams = &argon2id.Params{
	Memory:      46 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Generate an Argon2id hash for the control-plane admin token",
	Long: `Generate an Argon2id hash of the control-plane bearer token for
admin.token_hash in the config file.

Example:
  sentinel-gate hash-token "my-secret-admin-token"
  # Output: $argon2id$v=19$m=47104,t=1,p=1$...

Security note: The token will appear in shell history.
Consider clearing history after use or using an environment variable:
  sentinel-gate hash-token "$SENTINELGATE_ADMIN_TOKEN"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := argon2id.CreateHash(args[0], adminTokenParams)
		if err != nil {
			return fmt.Errorf("failed to hash token: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
