package cli

import (
	"bytes"
	"testing"
)

// executeCmd runs a fresh root command with args and returns what it wrote.
func executeCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// clearConfigEnv blanks the connection variables so a developer's
// environment does not leak into command tests.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_MSSQL", "DATABASE_MSSQL", "UID_MSSQL", "PWD_MSSQL", "SSH_HOST",
		"SNOWFLAKE_ACCOUNT", "SNOWFLAKE_USER", "SNOWFLAKE_PASSWORD",
		"SNOWFLAKE_DATABASE", "SNOWFLAKE_SCHEMA", "ADW_JOURNAL", "LOG_LEVEL", "ADW_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}
