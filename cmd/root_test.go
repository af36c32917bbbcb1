package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_noArgsAndHelpHaveSameResultAndDoDontPanic(t *testing.T) {
	cmdArgsTestCases := [][]string{
		{"--help"},
		{},
	}

	for i, cmdArgs := range cmdArgsTestCases {
		// setup
		rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
		rootCmd.SetArgs(cmdArgs)
		var out bytes.Buffer
		rootCmd.SetOut(&out)

		// test
		err := rootCmd.Execute()
		assert.NoErrorf(t, err, "test case %d returned an error", i)

		// assert printed text
		assert.Containsf(t, out.String(), "Use \"property-management-backend [command] --help\" for more information about a command.", "test case %d did not print help message as expected", i)
	}
}

func Test_SetupCLI_registersSubcommands(t *testing.T) {
	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")

	commands := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		commands[cmd.Name()] = true
	}

	assert.True(t, commands["serve"], "serve command is not registered")
	assert.True(t, commands["db"], "db command is not registered")
}

func Test_rootCmd_persistentFlagDefaults(t *testing.T) {
	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")

	testCases := []struct {
		flag string
		want string
	}{
		{"log-level", "info"},
		{"environment", "development"},
		{"main-domain", "propsuite.com"},
		{"database-url", "postgres://localhost:5432/pms?sslmode=disable"},
		{"sentry-dsn", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.flag, func(t *testing.T) {
			flag := rootCmd.PersistentFlags().Lookup(tc.flag)
			require.NotNilf(t, flag, "flag %q is not registered", tc.flag)
			assert.Equal(t, tc.want, flag.DefValue)
		})
	}
}
