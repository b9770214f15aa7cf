package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

var contacts = Config{
	SearchFields: []SearchableField{
		{Label: "First name", Value: "firstName", Path: "general.firstName"},
		{Label: "Email", Value: "email", Path: "general.email"},
		{Label: "Currency", Value: "currency"},
	},
	DefaultSearchField: "firstName",
	DefaultGroup:       "general",
	KnownPaths:         []string{"general.firstName", "general.lastName", "general.email", "currency", "companyId"},
}

func TestResolvePathOrder(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"firstName", "general.firstName"},
		{"currency", "currency"},
		{"general.phone", "general.phone"},
		{"companyId", "companyId"},
		{"lastName", "general.lastName"},
		{"", "general.firstName"},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			got, err := ResolvePath(contacts, tc.field)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolvePathUnknown(t *testing.T) {
	_, err := ResolvePath(contacts, "shoeSize")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnknownSearchField))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = ResolvePath(Config{}, "anything")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnknownSearchField))

	_, err = ResolvePath(Config{}, "")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnknownSearchField))
}

func TestResolvePathUnrestrictedGroup(t *testing.T) {
	got, err := ResolvePath(Config{DefaultGroup: "general"}, "nickname")
	require.NoError(t, err)
	assert.Equal(t, "general.nickname", got)
}

func TestResolvePathRejectsOperatorInjection(t *testing.T) {
	for _, field := range []string{"general.$where", "a..b", "general.first name"} {
		_, err := ResolvePath(contacts, field)
		assert.Error(t, err, field)
	}
}

func TestBuildIsCaseInsensitive(t *testing.T) {
	upper, err := Build(contacts, "firstName", "SMITH")
	require.NoError(t, err)
	lower, err := Build(contacts, "firstName", "smith")
	require.NoError(t, err)

	assert.Equal(t, upper, lower)
	assert.Equal(t, Filter{"general.firstName": {Pattern: "smith", CaseInsensitive: true}}, upper)
}

func TestBuildKeepsTermLiteral(t *testing.T) {
	f, err := Build(contacts, "email", "a.b+c@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a.b+c@x.com", f["general.email"].Pattern)
}

func TestFilterJSON(t *testing.T) {
	f, err := Build(contacts, "currency", "eur")
	require.NoError(t, err)
	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"currency":{"matches":"eur","caseInsensitive":true}}`, string(out))
}

func TestMatchAll(t *testing.T) {
	assert.True(t, MatchAll().IsMatchAll())
	f, _ := Build(contacts, "", "x")
	assert.False(t, f.IsMatchAll())
	assert.Equal(t, []string{"general.firstName"}, f.Paths())
}
