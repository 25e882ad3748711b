// Package testutil wires the core services on the in-memory stores for tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/harmony/apps/api/echo"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
	"github.com/trezcool/harmony/core/session"
	"github.com/trezcool/harmony/core/user"
	"github.com/trezcool/harmony/services/email"
	inmemcache "github.com/trezcool/harmony/storage/cache/inmem"
	inmemdb "github.com/trezcool/harmony/storage/database/inmem"
)

// AdminPassword satisfies the password policy.
const AdminPassword = "Tr3ble&Bass"

var templatesOnce sync.Once

type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// Env holds the services of a test application backed by memory.
type Env struct {
	Conf            *core.Config
	DB              *inmemdb.DB
	Mail            *emailsvc.ConsoleServiceMock
	UserRepo        user.Repository
	UserSvc         *user.Service
	RegistrationSvc *registration.Service
	MessageSvc      *message.Service
	SessionSvc      *session.Service
	Validate        *validator.Validate
	Translator      ut.Translator
}

func NewEnv() *Env {
	templatesOnce.Do(func() {
		core.ParseEmailTemplates(NopLogger{}, true)
		user.LoadCommonPasswords(NopLogger{})
	})

	conf := core.NewTestConfig()
	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, NopLogger{})

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)

	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo)
	return &Env{
		Conf:            conf,
		DB:              db,
		Mail:            mailSvc,
		UserRepo:        usrRepo,
		UserSvc:         usrSvc,
		RegistrationSvc: registration.NewService(inmemdb.NewRegistrationRepository(db), mailSvc, conf),
		MessageSvc:      message.NewService(inmemdb.NewMessageRepository(db), mailSvc, conf),
		SessionSvc:      session.NewService(usrSvc, inmemcache.NewRevocationStore(), conf),
		Validate:        validate,
		Translator:      translator,
	}
}

// NewServer returns the HTTP server of the application.
func (env *Env) NewServer() echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            env.Conf,
		Logger:          NopLogger{},
		RegistrationSvc: env.RegistrationSvc,
		MessageSvc:      env.MessageSvc,
		SessionSvc:      env.SessionSvc,
		Validate:        env.Validate,
		Translator:      env.Translator,
	})
}

// Reset empties the database & the mailbox.
func (env *Env) Reset() {
	env.DB.Reset()
	env.Mail.Reset()
}

func (env *Env) CreateUser(t *testing.T, name, email string, isActive bool) user.User {
	t.Helper()
	usr, err := env.UserSvc.Create(context.Background(), user.NewUser{
		Name: name, Email: email, Password: AdminPassword, PasswordConfirm: AdminPassword,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if !isActive {
		usr.IsActive = false
		if usr, err = env.UserRepo.UpdateUser(context.Background(), usr); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return usr
}

// SignIn returns the token of a new session of usr.
func (env *Env) SignIn(t *testing.T, usr user.User) string {
	t.Helper()
	sess, err := env.SessionSvc.SignIn(context.Background(), usr.Email, AdminPassword)
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	return sess.Token
}

func (env *Env) CreateRegistration(t *testing.T, name, instrument string) registration.Registration {
	t.Helper()
	reg, err := env.RegistrationSvc.Create(context.Background(), registration.NewRegistration{
		StudentName: name,
		Age:         12,
		Email:       "student@test.test",
		Phone:       "+243 810 000 000",
		Instrument:  instrument,
		Experience:  "beginner",
	})
	if err != nil {
		t.Fatalf("CreateRegistration() failed: %v", err)
	}
	return reg
}

func (env *Env) CreateMessage(t *testing.T, name, subject string) message.Message {
	t.Helper()
	msg, err := env.MessageSvc.Create(context.Background(), message.NewMessage{
		Name:    name,
		Email:   "visitor@test.test",
		Subject: subject,
		Message: "Hello there",
	})
	if err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}
	return msg
}
