package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/harmony/core/user"
	"github.com/trezcool/harmony/storage/database"
	"github.com/trezcool/harmony/tests"
)

const pwd = "Tr3ble&Bass"

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv()
	return &commandLine{
		usrSvc:     env.UserSvc,
		validate:   env.Validate,
		translator: env.Translator,
		out:        io.Discard,
	}, env
}

// passwords makes the prompt return pwds, one per call.
func passwords(pwds ...string) {
	readPasswordFunc = func(int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		p := pwds[0]
		pwds = pwds[1:]
		return []byte(p), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwds       []string
	wantErr    error
	wantErrStr string
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	orig := database.GooseRunFunc
	defer func() { database.GooseRunFunc = orig }()
	database.GooseRunFunc = func(command string, db *sql.DB, args ...string) error {
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

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "lessons", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "boss@harmony.test"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "boss@harmony.test", "-name", "Boss"}, wantErr: errHelp},
		{
			name: "weak password", args: []string{"adduser", "-email", "boss@harmony.test", "-name", "Boss"},
			pwds: []string{"12345678", "12345678"}, wantErrStr: "password cannot be entirely numeric",
		},
		{
			name: "passwords differ", args: []string{"adduser", "-email", "boss@harmony.test", "-name", "Boss"},
			pwds: []string{pwd, pwd + "!"}, wantErrStr: "password_confirm must be equal to Password",
		},
		{name: "created", args: []string{"adduser", "-email", "Boss@Harmony.test", "-name", "Boss"}, pwds: []string{pwd, pwd}},
		{
			name: "email taken", args: []string{"adduser", "-email", "boss@harmony.test", "-name", "Boss"},
			pwds: []string{pwd, pwd}, wantErrStr: user.ErrEmailExists.Error(),
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		passwords(tt.pwds...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	usr, err := env.UserSvc.Authenticate(context.Background(), "boss@harmony.test", pwd)
	require.NoError(t, err)
	assert.Equal(t, "Boss", usr.Name)
	assert.True(t, usr.IsActive)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	usr := env.CreateUser(t, "Boss", "boss@harmony.test", true)

	newPwd := "Qu4rter&Note"
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@harmony.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@harmony.test"}, pwds: []string{newPwd, newPwd}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwds: []string{newPwd, newPwd}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		passwords(tt.pwds...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	refreshed, err := env.UserRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "password updated")
	_, err = env.UserSvc.Authenticate(context.Background(), usr.Email, newPwd)
	assert.NoError(t, err)
}
