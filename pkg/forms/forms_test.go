package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignUpPasswordMismatch(t *testing.T) {
	errs := Validate(&SignUpForm{
		Name:            "Aman",
		Email:           "a@gmail.com",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	})

	assert.Equal(t, Errors{"confirmPassword": "Password is not match"}, errs)
}

func TestSignUpValid(t *testing.T) {
	errs := Validate(&SignUpForm{
		Name:            "Aman",
		Email:           "a@gmail.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})

	assert.Nil(t, errs)
}

func TestSignUpMissingFields(t *testing.T) {
	errs := Validate(&SignUpForm{})

	assert.Equal(t, "Name is required", errs["name"])
	assert.Equal(t, "Invalid email", errs["email"])
	assert.Equal(t, "Password is required", errs["password"])
	assert.Equal(t, "Password is required", errs["confirmPassword"])
}

func TestSignIn(t *testing.T) {
	tests := []struct {
		name string
		form SignInForm
		want Errors
	}{
		{"valid", SignInForm{Email: "a@gmail.com", Password: "x"}, nil},
		{"bad email", SignInForm{Email: "not-an-email", Password: "x"}, Errors{"email": "Invalid email"}},
		{"empty password", SignInForm{Email: "a@gmail.com"}, Errors{"password": "Password is required"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(&tt.form))
		})
	}
}

func TestMeetingPatchStatus(t *testing.T) {
	bad := "archived"
	errs := Validate(&MeetingPatch{Status: &bad})
	assert.Equal(t, Errors{"status": "Invalid status"}, errs)

	good := "completed"
	assert.Nil(t, Validate(&MeetingPatch{Status: &good}))
}

func TestAgentForm(t *testing.T) {
	errs := Validate(&AgentForm{})
	assert.Equal(t, Errors{"name": "Name is required", "instructions": "Instructions are required"}, errs)

	empty := ""
	errs = Validate(&AgentPatch{Instructions: &empty})
	assert.Equal(t, Errors{"instructions": "Instructions are required"}, errs)
}

func TestPatchEmpty(t *testing.T) {
	assert.True(t, (&AgentPatch{}).Empty())
	assert.True(t, (&MeetingPatch{}).Empty())

	s := "x"
	assert.False(t, (&MeetingPatch{Summary: &s}).Empty())
}

func TestErrorsString(t *testing.T) {
	e := Errors{"b": "second", "a": "first"}
	assert.Equal(t, "a: first; b: second", e.Error())
}

func TestSafeCallback(t *testing.T) {
	assert.Equal(t, "/", SafeCallback(""))
	assert.Equal(t, "/agents", SafeCallback("/agents"))
	assert.Equal(t, "/", SafeCallback("https://evil.example"))
	assert.Equal(t, "/", SafeCallback("//evil.example"))
	assert.Equal(t, "/", SafeCallback("/\\evil.example"))
	assert.Equal(t, "/meetings?status=active", SafeCallback("/meetings?status=active"))

	for _, raw := range []string{
		"/\t/evil.example",
		"/\n/evil.example",
		"/\r\n/evil.example",
		"/agents\\..\\..\\evil.example",
		"/\x7f/evil.example",
		"/%zz",
	} {
		assert.Equal(t, "/", SafeCallback(raw), "%q", raw)
	}
}

func TestBlankNames(t *testing.T) {
	errs := Validate(&AgentForm{Name: "   ", Instructions: "\t"})
	assert.Equal(t, Errors{"name": "Name is required", "instructions": "Instructions are required"}, errs)

	errs = Validate(&MeetingForm{Name: " \t ", AgentID: "a1"})
	assert.Equal(t, Errors{"name": "Name is required"}, errs)

	blank := "  "
	errs = Validate(&AgentPatch{Name: &blank})
	assert.Equal(t, Errors{"name": "Name is required"}, errs)

	errs = Validate(&MeetingPatch{Name: &blank, AgentID: &blank})
	assert.Equal(t, Errors{"name": "Name is required", "agentId": "Agent is required"}, errs)

	errs = Validate(&SignUpForm{Name: " ", Email: "a@gmail.com", Password: "secret1", ConfirmPassword: "secret1"})
	assert.Equal(t, Errors{"name": "Name is required"}, errs)
}
