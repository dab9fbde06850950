package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type contactInput struct {
	Phone string `json:"phone" validate:"required,max=20"`
}

type patientInput struct {
	Number   string         `json:"identification_number" validate:"required,identification"`
	Contacts []contactInput `json:"contacts" validate:"dive"`
}

func newValidate(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestCustomTags(t *testing.T) {
	v := newValidate(t)

	tests := []struct {
		name  string
		input patientInput
		valid bool
	}{
		{"valid", patientInput{Number: "4567890", Contacts: []contactInput{{Phone: "555-0100"}}}, true},
		{"letters in identification", patientInput{Number: "45A7890"}, false},
		{"short identification", patientInput{Number: "123"}, false},
		{"long identification", patientInput{Number: "123456789012345678901"}, false},
		{"missing contact phone", patientInput{Number: "4567890", Contacts: []contactInput{{}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	v := newValidate(t)

	err := v.Struct(patientInput{
		Number:   "12a",
		Contacts: []contactInput{{Phone: ""}},
	})
	require.Error(t, err)

	msgs := Messages(err)
	assert.Equal(t, []string{
		"identification_number must contain only digits (4 to 20)",
		"contacts[0].phone is required",
	}, msgs)

	appErr := FromBinding(err)
	assert.True(t, errors.HasCode(appErr, errors.ErrValidation))
	assert.Len(t, appErr.Details, 2)
}
