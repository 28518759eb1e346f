package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

func setup(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: dummydb.NewUserRepository(db),
	}
}

func createUser(t *testing.T, repo user.Repository, uname, email, pwd string, roles []string) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
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
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
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
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, cli.usrRepo, "awe", "awe@test.cd", "mdr", nil)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("LobiMakasi"), nil }

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"resetpassword", "-username", "lol"}, wantErr: user.ErrNotFound},
		{name: "by username", args: []string{"resetpassword", "-username", "awe"}},
		{name: "by email", args: []string{"resetpassword", "-username", "awe@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}

			updated, gErr := cli.usrRepo.GetUserByID(usr.ID)
			if gErr != nil {
				t.Fatalf("GetUserByID() failed: %v", gErr)
			}
			if cErr := updated.CheckPassword("LobiMakasi"); cErr != nil {
				t.Errorf("CheckPassword() failed after reset: %v", cErr)
			}
		})
	}
}

func Test_commandLine_addTeacher(t *testing.T) {
	cli := setup(t)

	existing := createUser(t, cli.usrRepo, "hero", "hero@test.cd", "mdr", []string{user.RoleStudent})

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("LobiMakasi"), nil }

	t.Run("missing flags", func(t *testing.T) {
		if err := cli.run([]string{"admin", "addteacher"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("creates a new teacher", func(t *testing.T) {
		if err := cli.run([]string{"admin", "addteacher", "-username", "prof", "-email", "prof@test.cd"}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
		usr, err := cli.usrRepo.GetUserByUsername("prof")
		if err != nil {
			t.Fatalf("GetUserByUsername() failed: %v", err)
		}
		if !usr.IsTeacher() || !usr.IsStudent() {
			t.Errorf("roles = %v; want both", usr.Roles)
		}
		if err = usr.CheckPassword("LobiMakasi"); err != nil {
			t.Errorf("CheckPassword() failed: %v", err)
		}
	})

	t.Run("promotes an existing user", func(t *testing.T) {
		if err := cli.run([]string{"admin", "addteacher", "-username", "hero", "-email", "hero@test.cd"}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
		usr, err := cli.usrRepo.GetUserByID(existing.ID)
		if err != nil {
			t.Fatalf("GetUserByID() failed: %v", err)
		}
		if !usr.IsTeacher() {
			t.Errorf("roles = %v; want teacher", usr.Roles)
		}
	})
}
