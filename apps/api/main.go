package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/harmony/apps/api/echo"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
	"github.com/trezcool/harmony/core/session"
	"github.com/trezcool/harmony/core/user"
	emailsvc "github.com/trezcool/harmony/services/email"
	logsvc "github.com/trezcool/harmony/services/logger"
	inmemcache "github.com/trezcool/harmony/storage/cache/inmem"
	"github.com/trezcool/harmony/storage/cache/redisstore"
	"github.com/trezcool/harmony/storage/database"
	inmemdb "github.com/trezcool/harmony/storage/database/inmem"
	"github.com/trezcool/harmony/storage/database/sqlxrepos"
)

type repositories struct {
	user         user.Repository
	registration registration.Repository
	message      message.Repository
	close        func() error
}

func main() {
	inMem := flag.Bool("inmem", false, "keep all records in memory (nothing is persisted)")
	flag.Parse()

	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := setUpRepositories(conf, *inMem)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up session revocations
	revocations, closeRevocations, err := setUpRevocations(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	defer func() {
		if err = closeRevocations(); err != nil {
			logger.Error(fmt.Sprintf("closing redis: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(repos.user)
	sessSvc := session.NewService(usrSvc, revocations, conf)
	regSvc := registration.NewService(repos.registration, mailSvc, conf)
	msgSvc := message.NewService(repos.message, mailSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, false)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		RegistrationSvc: regSvc,
		MessageSvc:      msgSvc,
		SessionSvc:      sessSvc,
		Validate:        validate,
		Translator:      translator,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config, inMem bool) (*repositories, error) {
	if inMem {
		db := inmemdb.Open()
		return &repositories{
			user:         inmemdb.NewUserRepository(db),
			registration: inmemdb.NewRegistrationRepository(db),
			message:      inmemdb.NewMessageRepository(db),
			close:        func() error { return nil },
		}, nil
	}

	if conf.Debug {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &repositories{
		user:         sqlxrepos.NewUserRepository(db),
		registration: sqlxrepos.NewRegistrationRepository(db),
		message:      sqlxrepos.NewMessageRepository(db),
		close:        db.Close,
	}, nil
}

// setUpRevocations keeps signed out tokens in redis when configured, in memory otherwise.
func setUpRevocations(conf *core.Config) (session.RevocationStore, func() error, error) {
	if conf.Redis.Address == "" {
		return inmemcache.NewRevocationStore(), func() error { return nil }, nil
	}
	client, err := redisstore.Open(context.Background(), conf)
	if err != nil {
		return nil, nil, err
	}
	return redisstore.NewRevocationStore(client), client.Close, nil
}
