package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/murmurhq/murmur-server/pkg/credential"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Credential helpers for local development",
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Sign an access credential with JWT_SECRET",
	Long: `Sign a short-lived access credential the gateway will accept. The secret is
read from JWT_SECRET and the issuer from JWT_ISSUER (default murmur-identity).`,
	RunE: runTokenMint,
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify TOKEN",
	Short: "Verify an access credential with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenVerify,
}

func init() {
	tokenCmd.AddCommand(tokenMintCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)

	tokenMintCmd.Flags().String("user", "", "User id (required)")
	tokenMintCmd.Flags().String("username", "", "Username")
	tokenMintCmd.Flags().Duration("ttl", 10*time.Minute, "Credential lifetime")
	_ = tokenMintCmd.MarkFlagRequired("user")
}

func secretAndIssuer() (string, string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", "", errors.New("JWT_SECRET is not set")
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "murmur-identity"
	}
	return secret, issuer, nil
}

func runTokenMint(cmd *cobra.Command, args []string) error {
	secret, issuer, err := secretAndIssuer()
	if err != nil {
		return err
	}
	userID, _ := cmd.Flags().GetString("user")
	username, _ := cmd.Flags().GetString("username")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	signer, err := credential.NewSigner(secret, issuer, ttl)
	if err != nil {
		return err
	}
	token, expiresAt, err := signer.Sign(credential.Identity{UserID: userID, Username: username})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	secret, issuer, err := secretAndIssuer()
	if err != nil {
		return err
	}
	verifier, err := credential.NewVerifier(secret, issuer)
	if err != nil {
		return err
	}
	identity, err := verifier.Verify(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "userId:   %s\nusername: %s\n", identity.UserID, identity.Username)
	return nil
}
