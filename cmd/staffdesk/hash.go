// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "hash [PASSWORD]",
		Short: "Print the argon2id hash of a password",
		Long: `Print the argon2id hash of a password for the password_hash field of a
seed file. With --stdin the password is read from the first line of standard
input so it stays out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			switch {
			case fromStdin:
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return oops.Code("HASH_READ_FAILED").Wrap(err)
				}
				password = strings.TrimRight(line, "\r\n")
			case len(args) == 1:
				password = args[0]
			default:
				return oops.Code("HASH_NO_PASSWORD").
					Wrapf(errutil.ErrValidation, "pass a password argument or --stdin")
			}

			hash, err := auth.NewArgon2idHasher().Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from standard input")
	return cmd
}
