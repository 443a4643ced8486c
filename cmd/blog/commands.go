package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/blog-forge/internal/auth"
	"github.com/yourusername/blog-forge/internal/config"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the blog_posts, users and comments tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			logger.WithField("database", cfg.DatabasePath).Info("migration complete")
			return nil
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "hash-password <plaintext>",
		Short: "Print a password digest compatible with the users table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations <= 0 {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				iterations = cfg.PasswordHashIterations
			}
			codec := auth.PasswordCodec{Iterations: iterations, SaltLength: auth.DefaultSaltLength}
			digest, err := codec.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "i", 0, "pbkdf2 iterations (default: PASSWORD_HASH_ITERATIONS)")
	return cmd
}
