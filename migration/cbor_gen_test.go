package migration

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xorcare/golden"
)

func TestMigrationTaskCBORRoundTrip(t *testing.T) {
	top := []byte("top-key")
	child := []byte("child-key")
	want := &MigrationTask{
		CurrentTop:    &top,
		CurrentChild:  &child,
		PrevTickChild: true,
		Size:          1234,
		TopItems:      56,
		ChildItems:    78,
	}
	raw, err := want.MarshalCBOR()
	require.NoError(t, err)

	var got MigrationTask
	require.NoError(t, got.UnmarshalCBOR(raw))
	require.True(t, want.persistedEqual(&got), "round trip mismatch: want %+v, got %+v", want, got)
}

func TestMigrationTaskCBORRoundTripAbsentCursor(t *testing.T) {
	want := &MigrationTask{}
	raw, err := want.MarshalCBOR()
	require.NoError(t, err)

	var got MigrationTask
	require.NoError(t, got.UnmarshalCBOR(raw))
	require.True(t, got.Finished(), "expected round-tripped task with absent cursor to report Finished")
}

func TestMigrationTaskCBORDistinguishesAbsentFromEmptyTop(t *testing.T) {
	empty := []byte{}
	want := &MigrationTask{CurrentTop: &empty}
	raw, err := want.MarshalCBOR()
	require.NoError(t, err)

	var got MigrationTask
	require.NoError(t, got.UnmarshalCBOR(raw))
	require.NotNil(t, got.CurrentTop, "expected CurrentTop to remain present (non-nil) after round trip")
	require.Empty(t, *got.CurrentTop, "expected CurrentTop to remain empty")
}

func TestMigrationTaskCBOREncodingIsStable(t *testing.T) {
	top := []byte("a")
	task := &MigrationTask{
		CurrentTop: &top,
		Size:       1,
		TopItems:   2,
		ChildItems: 3,
	}
	raw, err := task.MarshalCBOR()
	require.NoError(t, err)
	golden.Assert(t, raw)
}

func TestAutoLimitsCBORRoundTrip(t *testing.T) {
	cases := []*MigrationLimits{
		nil,
		{Size: 100, Item: 5},
	}
	for _, want := range cases {
		wrapper := autoLimitsCBOR{limits: want}
		raw, err := wrapper.MarshalCBOR()
		require.NoError(t, err)

		var got autoLimitsCBOR
		require.NoError(t, got.UnmarshalCBOR(raw))
		require.Equal(t, want == nil, got.limits == nil, "presence mismatch: want %v, got %v", want, got.limits)
		if want != nil {
			require.Equal(t, *want, *got.limits)
		}
	}
}
