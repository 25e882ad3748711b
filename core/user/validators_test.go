package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/harmony/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestNewUser_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)
	LoadCommonPasswords(nopLogger{})

	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{name: "min len", pwd: "Ab1!", wantErr: pwdMinLenText},
		{name: "whitespace", pwd: "Ab1! cdefg", wantErr: pwdNoSpaceText},
		{name: "all numeric", pwd: "1234567890", wantErr: pwdNotAllNumText},
		{name: "complexity", pwd: "abcdefgh1", wantErr: pwdComplexityText},
		{name: "similar to name", pwd: "Cadenza#1", wantErr: pwdAttrSimText},
		{name: "too common", pwd: "P@ssw0rd", wantErr: pwdNoCommonText},
		{name: "valid", pwd: "Tr3ble&Bass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{Name: "Cadenza", Email: "boss@harmony.test", Password: tt.pwd, PasswordConfirm: tt.pwd}
			err := core.TranslateErrors(nu.Validate(validate), translator)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				vErr, ok := err.(*core.ValidationError)
				if assert.True(t, ok) {
					assert.Equal(t, tt.wantErr, vErr.FieldMap()["password"])
				}
			}
		})
	}
}
