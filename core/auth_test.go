package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePermissions(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"explore", []string{"explore"}},
		{" explore , services ,explore", []string{"explore", "services"}},
		{"a,,b", []string{"a", "b"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParsePermissions(tc.in), tc.in)
	}
	assert.Equal(t, "a,b", FormatPermissions([]string{" a", "b", "a", ""}))
}

func TestIsAdminDerivedFromPermissions(t *testing.T) {
	cases := []struct {
		perms string
		admin bool
	}{
		{"", false},
		{"explore,services", false},
		{AdminCapability, true},
		{"explore, " + AdminCapability + " ", true},
		{"system_settings_extra", false},
		{DefaultPermissions, true},
	}
	for _, tc := range cases {
		u := newUser("1", "u", "", tc.perms, SourcePersisted)
		assert.Equal(t, tc.admin, u.IsAdmin(), tc.perms)
	}

	var nobody *User
	assert.False(t, nobody.IsAdmin())
	assert.False(t, nobody.Can("explore"))
	assert.Nil(t, nobody.Menus())
	assert.False(t, nobody.VerifyPassword("x"))
}

func TestUserPresentationBySource(t *testing.T) {
	for _, src := range []Source{SourceBootstrap, SourcePersisted} {
		u := newUser("1", "u", "", "explore", src)
		assert.Equal(t, 1, u.Search)
		assert.Equal(t, 99, u.Level)
		assert.Equal(t, src, u.Source)
	}
	u := newUser("1", "u", "", "explore,services", SourcePersisted)
	assert.True(t, u.Can(" services"))
	assert.Equal(t, []string{"explore", "services"}, u.Menus())
}
