package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/harmony/client/api"
	"github.com/trezcool/harmony/client/forms"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/registration"
	logsvc "github.com/trezcool/harmony/services/logger"
)

func main() {
	conf := core.NewConfig()
	baseURL := flag.String("url", conf.Client.BaseURL, "base URL of the API")
	flag.Parse()

	logger := logsvc.NewLogrusLogger(os.Stderr, conf.Debug)

	validate, translator := core.NewValidator()
	registration.InitValidators(validate, translator)

	conf.Client.BaseURL = *baseURL
	client := api.NewFromConfig(conf, logger)

	var readPassword func() (string, error)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		readPassword = func() (string, error) {
			pwd, err := term.ReadPassword(fd)
			return string(pwd), err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cons := newConsole(consoleDeps{
		Client:       client,
		Forms:        forms.Deps{Validate: validate, Translator: translator},
		Logger:       logger,
		In:           os.Stdin,
		Out:          os.Stdout,
		ReadPassword: readPassword,
	})
	if err := cons.run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
