package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	_en := en.New()
	translator, found := ut.New(_en, _en).GetTranslator("en")
	require.True(t, found)
	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

func TestInitValidators(t *testing.T) {
	type edit struct {
		First string `json:"first" validate:"required_without=Last"`
		Last  string `json:"last"`
		Skill string `json:"skill" validate:"notblank"`
		Value string `json:"value" validate:"mark"`
		Owner string `json:"owner" validate:"required"`
	}
	validate, translator := newTestValidator(t)

	tests := []struct {
		name string
		in   edit
		want map[string]string
	}{
		{
			name: "valid",
			in:   edit{Last: "Lee", Skill: "S1-Float", Value: "X", Owner: "Maya"},
			want: map[string]string{},
		},
		{
			name: "no name at all",
			in:   edit{Skill: "S1-Float", Owner: "Maya"},
			want: map[string]string{"first": requiredText},
		},
		{
			name: "blank skill and bad mark",
			in:   edit{First: "Ann", Skill: "  ", Value: "Y", Owner: "Maya"},
			want: map[string]string{"skill": notBlankText, "value": markText},
		},
		{
			name: "missing owner",
			in:   edit{First: "Ann", Skill: "S1-Float"},
			want: map[string]string{"owner": requiredText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(map[string]string)
			if err := validate.Struct(tt.in); err != nil {
				vErrs, ok := err.(validator.ValidationErrors)
				require.True(t, ok, "Struct() error = %v", err)
				for _, fErr := range vErrs {
					got[fErr.Field()] = fErr.Translate(translator)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
