package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	usrSvc     user.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]           - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME  - create an admin; the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL       - reset an admin's password; the password is prompted")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserEmail := addUserCmd.String("email", "", "The admin's email, used to sign in.")
	addUserName := addUserCmd.String("name", "", "The admin's name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The admin's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, confirm)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd, confirm)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (pwd, confirm string, err error) {
	fmt.Fprint(cli.out, "Enter password:")
	p, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil || len(p) == 0 {
		return "", "", err
	}
	fmt.Fprint(cli.out, "Confirm password:")
	c, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", "", err
	}
	return string(p), string(c), nil
}

// validationError flattens field errors for the terminal.
func (cli *commandLine) validationError(err error) error {
	err = core.TranslateErrors(err, cli.translator)
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok && len(vErr.Fields) > 0 {
		msg := vErr.Fields[0].Error
		for _, f := range vErr.Fields[1:] {
			msg += "; " + f.Error
		}
		return errors.New(msg)
	}
	return err
}

func (cli *commandLine) addUser(name, email, pwd, confirm string) error {
	nu := user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: confirm}
	if err := nu.Validate(cli.validate); err != nil {
		return cli.validationError(err)
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return cli.validationError(err)
	}
	fmt.Fprintf(cli.out, "admin %s <%s> created\n", usr.Name, usr.Email)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd, confirm string) error {
	rp := user.ResetUserPassword{Email: email, Password: pwd, PasswordConfirm: confirm}
	if err := rp.Validate(cli.validate); err != nil {
		return cli.validationError(err)
	}
	if err := cli.usrSvc.ResetPassword(context.Background(), rp); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %s updated\n", rp.Email)
	return nil
}
