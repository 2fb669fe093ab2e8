// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

func TestHashCommand_Argument(t *testing.T) {
	out, err := execute(t, "hash", "admin123")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := auth.NewArgon2idHasher().Verify("admin123", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashCommand_Stdin(t *testing.T) {
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader("from stdin\n"))
	cmd.SetArgs([]string{"hash", "--stdin"})
	require.NoError(t, cmd.Execute())

	ok, err := auth.NewArgon2idHasher().Verify("from stdin", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashCommand_Errors(t *testing.T) {
	_, err := execute(t, "hash")
	errutil.AssertErrorCode(t, err, "HASH_NO_PASSWORD")

	_, err = execute(t, "hash", "")
	errutil.AssertErrorKind(t, err, errutil.ErrValidation)
}
