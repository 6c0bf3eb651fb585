package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := InvalidStatef("time card %s is %s", "tc-1", TimeCardApproved)
	assert.Equal(t, "InvalidState: time card tc-1 is APPROVED", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrForbidden))

	wrapped := fmt.Errorf("failed to review: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidState))
	assert.Equal(t, KindInvalidState, KindOf(wrapped))

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Error{Kind: KindNotFound, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NotFound: connection reset", err.Error())
	assert.Equal(t, "Conflict", (&Error{Kind: KindConflict}).Error())
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"STAFF":             RoleStaff,
		"faculty":           RoleFaculty,
		"FULL_TIME_FACULTY": RoleFaculty,
		" manager ":         RoleManager,
		"PRINCIPAL":         RolePrincipal,
		"ADMIN":             RoleDistrictAdmin,
		"DISTRICT_ADMIN":    RoleDistrictAdmin,
	}
	for in, want := range tests {
		got, err := ParseRole(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid())
	}

	_, err := ParseRole("JANITOR")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.False(t, Role("ADMIN").Valid())
}

func TestPrincipalCapabilities(t *testing.T) {
	admin := PrincipalOf(User{ID: "a", Role: RoleDistrictAdmin})
	lead := PrincipalOf(User{ID: "p", Role: RolePrincipal, Building: "North"})
	staff := PrincipalOf(User{ID: "s", Role: RoleStaff})

	assert.True(t, admin.CanAdminister())
	assert.False(t, admin.IsBuildingLead())
	assert.True(t, lead.IsBuildingLead())
	assert.Equal(t, "North", lead.Building)
	assert.False(t, staff.CanAdminister())
	assert.False(t, staff.IsBuildingLead())
}
