package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/spmb/apps/api/echo"
	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
	inmemdb "github.com/trezcool/spmb/storage/database/inmem"
	"github.com/trezcool/spmb/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := core.NewTestConfig()
	validate, translator := testutil.NewValidate()
	out := new(bytes.Buffer)

	// in-memory store: connect is a no-op
	db := inmemdb.Open()
	return &commandLine{
		conf:       conf,
		out:        out,
		validate:   validate,
		translator: translator,
		schoolSvc:  school.NewService(inmemdb.NewSchoolRepository(db)),
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, _ := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotCommand string
	gooseRunFunc = func(_ context.Context, command string, _ *sql.DB, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "3"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_wave_index", "sql"}},
	})
	assert.Equal(t, "create", gotCommand)
}

func Test_commandLine_addSchool(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no name", args: []string{"addschool"}, wantErrStr: "name: this field cannot be blank"},
		{
			name:       "bad npsn",
			args:       []string{"addschool", "--name", "SMA Negeri 2 Surabaya", "--npsn", "123"},
			wantErrStr: "npsn: npsn must be 8 characters in length",
		},
		{name: "unexpected arg", args: []string{"addschool", "SMA"}, wantErrStr: `unknown command "SMA" for "admin addschool"`},
		{name: "registered", args: []string{"addschool", "--name", " SMA Negeri 2 Surabaya ", "--npsn", "20532154", "--address", "Jl. Wijaya Kusuma 48"}},
	})

	schools, err := cli.schoolSvc.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "SMA Negeri 2 Surabaya", schools[0].Name)
	assert.Equal(t, "20532154", schools[0].NPSN)
	assert.Contains(t, out.String(), `school "SMA Negeri 2 Surabaya" registered: `+schools[0].ID)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "schools"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], schools[0].ID)
	assert.Contains(t, lines[1], "SMA Negeri 2 Surabaya")
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no username", args: []string{"token"}, wantErr: errHelp},
		{name: "bad ttl", args: []string{"token", "--username", "operator", "--ttl", "-1h"}, wantErrStr: "invalid ttl -1h0m0s"},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "--username", "operator", "--email", "Operator@Sekolah.sch.id", "--ttl", "2h"}))

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "operator", claims.Username)
	assert.Equal(t, "operator@sekolah.sch.id", claims.Email)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, time.Minute)
}
