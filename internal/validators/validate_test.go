package validators

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidationError(t *testing.T) {
	type testStructNested struct {
		NestedRequiredField string `validate:"required"`
		NestedEnumField     string `validate:"oneof=foo bar"`
	}

	type testStruct struct {
		RequiredField      string             `validate:"required"`
		RequiredArrayField []string           `validate:"required,gt=0,dive,not_empty"`
		EnumField          string             `validate:"oneof=foo bar"`
		PublicKeyField     string             `validate:"public_key"`
		EncodedField       string             `validate:"omitempty,base64"`
		ScoreField         float64            `validate:"lte=1"`
		UnknownTagField    int                `validate:"ne=1"`
		NestedField        []testStructNested `validate:"dive"`
	}

	address := solana.NewWallet().PublicKey().String()

	testCases := []struct {
		name                string
		stc                 *testStruct
		expectedFieldErrors map[string]interface{}
	}{
		{
			name: "🔴top_level_fields",
			stc: &testStruct{
				RequiredField:      "",
				RequiredArrayField: []string{},
				EnumField:          "invalid",
				PublicKeyField:     "invalid",
				EncodedField:       "not base64!",
				ScoreField:         1.5,
				UnknownTagField:    2,
			},
			expectedFieldErrors: map[string]interface{}{
				"requiredField":      "This field is required",
				"requiredArrayField": "Should have at least 1 element",
				"enumField":          `Unexpected value "invalid". Expected one of the following values: foo, bar`,
				"publicKeyField":     "Invalid public key provided",
				"encodedField":       "Should be a base64 encoded value",
				"scoreField":         "Should be less than or equal 1",
			},
		},
		{
			name: "🔴empty_array_element",
			stc: &testStruct{
				RequiredField:      "foo",
				RequiredArrayField: []string{"bar", ""},
				EnumField:          "bar",
				PublicKeyField:     address,
				UnknownTagField:    2,
			},
			expectedFieldErrors: map[string]interface{}{
				"requiredArrayField[1]": "This field cannot be empty",
			},
		},
		{
			name: "🔴unknown_tag",
			stc: &testStruct{
				RequiredField:      "foo",
				RequiredArrayField: []string{"bar"},
				EnumField:          "bar",
				PublicKeyField:     address,
				UnknownTagField:    1,
			},
			expectedFieldErrors: map[string]interface{}{
				"unknownTagField": "Invalid value",
			},
		},
		{
			name: "🔴nested_fields",
			stc: &testStruct{
				RequiredField:      "foo",
				RequiredArrayField: []string{"bar"},
				EnumField:          "bar",
				PublicKeyField:     address,
				UnknownTagField:    2,
				NestedField: []testStructNested{
					{
						NestedRequiredField: "",
						NestedEnumField:     "invalid",
					},
				},
			},
			expectedFieldErrors: map[string]interface{}{
				"nestedField[0].nestedRequiredField": "This field is required",
				"nestedField[0].nestedEnumField":     `Unexpected value "invalid". Expected one of the following values: foo, bar`,
			},
		},
	}

	val := NewValidator()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := val.Struct(tc.stc)
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			fieldErrors := ParseValidationError(vErrs)
			assert.Equal(t, tc.expectedFieldErrors, fieldErrors)
		})
	}
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		ID      string `validate:"required"`
		Address string `validate:"required,public_key"`
	}

	val := NewValidator()

	t.Run("🟢valid", func(t *testing.T) {
		err := ValidateStruct(val, &payload{ID: "tx-1", Address: solana.NewWallet().PublicKey().String()})
		require.NoError(t, err)
	})

	t.Run("🔴invalid", func(t *testing.T) {
		err := ValidateStruct(val, &payload{Address: "invalid"})
		require.Error(t, err)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, map[string]interface{}{
			"iD":      "This field is required",
			"address": "Invalid public key provided",
		}, vErr.Fields)
		assert.Equal(t, "validation failed: address: Invalid public key provided; iD: This field is required", err.Error())
	})
}

func TestGetFieldName(t *testing.T) {
	type testStructNested struct {
		Name     string             `validate:"not_empty"`
		Children []testStructNested `validate:"dive"`
	}

	type testStruct struct {
		PublicKey   string             `validate:"public_key"`
		NestedField []testStructNested `validate:"required,dive"`
	}

	stc := &testStruct{
		PublicKey: "invalid",
		NestedField: []testStructNested{
			{
				Name: "first",
				Children: []testStructNested{
					{
						Name: "second",
						Children: []testStructNested{
							{
								Name:     "children1",
								Children: []testStructNested{},
							},
							{
								Name: "children2",
								Children: []testStructNested{
									{
										Name:     "",
										Children: []testStructNested{},
									},
								},
							},
						},
					},
				},
			},
		},
	}
	val := NewValidator()
	err := val.Struct(stc)
	require.Error(t, err)

	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	require.Len(t, vErrs, 2)

	assert.Equal(t, "publicKey", getFieldName(vErrs[0]))
	assert.Equal(t, "children[0].name", getFieldName(vErrs[1]))
}

func TestLCFist(t *testing.T) {
	got := lcFirst("Address")
	assert.Equal(t, "address", got)
	got = lcFirst("PublicKey")
	assert.Equal(t, "publicKey", got)
	got = lcFirst("A")
	assert.Equal(t, "a", got)
	got = lcFirst("")
	assert.Equal(t, "", got)
}
