package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/birdkit/errors"
)

type endpointConfig struct {
	APIURL  string `mapstructure:"api_url" validate:"required,httpurl"`
	Retries int    `mapstructure:"retries" validate:"min=0,max=5"`
	Mode    string `mapstructure:"mode" validate:"omitempty,oneof=a b"`
}

type rootConfig struct {
	HTTP endpointConfig `mapstructure:"http"`
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(&endpointConfig{APIURL: "https://api.example.com/1.1/"}))
}

func TestValidate_FieldErrors(t *testing.T) {
	err := Validate(&endpointConfig{APIURL: "ftp://x", Retries: 9, Mode: "c"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidConfig, appErr.Code)

	fields, ok := appErr.Details["fields"].([]FieldError)
	require.True(t, ok)
	require.Len(t, fields, 3)
	assert.Equal(t, FieldError{Field: "api_url", Message: "must be an absolute http(s) URL"}, fields[0])
	assert.Equal(t, FieldError{Field: "retries", Message: "must be at most 5"}, fields[1])
	assert.Equal(t, FieldError{Field: "mode", Message: "must be one of: a b"}, fields[2])
}

func TestValidate_NestedPath(t *testing.T) {
	err := Validate(&rootConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.api_url: is required")
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "api_url", toSnakeCase("ApiUrl"))
	assert.Equal(t, "timeout", toSnakeCase("Timeout"))
}
