package sharedtypes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five-stack-club/stackbot/app/shared/gamerules"
)

func TestRoleListRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		list RoleList
	}{
		{"ordered preference", RoleList{gamerules.RoleSupport, gamerules.RoleTank}},
		{"single", RoleList{gamerules.RoleDPS}},
		{"empty", RoleList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := tt.list.Value()
			require.NoError(t, err)

			var got RoleList
			require.NoError(t, got.Scan(val))
			if len(tt.list) > 0 {
				if diff := cmp.Diff(tt.list, got); diff != "" {
					t.Errorf("round trip mismatch (-want +got):\n%s", diff)
				}
			}
			assert.Len(t, got, len(tt.list))
		})
	}
}

func TestRoleListEncoding(t *testing.T) {
	val, err := RoleList{gamerules.RoleTank, gamerules.RoleDPS}.Value()
	require.NoError(t, err)
	// The column contract is a plain JSON array of role names.
	assert.Equal(t, `["tank","dps"]`, val)
}

func TestRoleListScanNull(t *testing.T) {
	var got RoleList
	require.NoError(t, got.Scan(nil))
	assert.Nil(t, got)
}

func TestAccountIDListRoundTrip(t *testing.T) {
	list := AccountIDList{42, 7, 13}

	val, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, `[42,7,13]`, val)

	var got AccountIDList
	require.NoError(t, got.Scan([]byte(val.(string))))
	assert.Equal(t, list, got)
}

func TestAccountIDListScanGarbage(t *testing.T) {
	var got AccountIDList
	assert.Error(t, got.Scan("{not json"))
	assert.Error(t, got.Scan(42))
}
