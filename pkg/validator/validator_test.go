package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	OTP      string `json:"otp" validate:"omitempty,len=6,numeric"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(sampleRequest{
		Email:    "shopper@example.com",
		Password: "long-enough",
		OTP:      "123456",
	})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(sampleRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 2)

	fields := map[string]string{}
	for _, f := range failures {
		fields[f.Field] = f.Tag
	}
	require.Equal(t, "email", fields["email"])
	require.Equal(t, "min", fields["password"])
}

func TestValidateStructOTPRules(t *testing.T) {
	err := ValidateStruct(sampleRequest{
		Email:    "shopper@example.com",
		Password: "long-enough",
		OTP:      "12ab56",
	})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Equal(t, "otp", failures[0].Field)
}

func TestValidationErrorsMessage(t *testing.T) {
	failures := ValidationErrors{
		{Field: "password", Tag: "min", Param: "8"},
		{Field: "email", Tag: "required"},
	}
	require.Equal(t, "password failed on min=8; email failed on required", failures.Error())

	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}
